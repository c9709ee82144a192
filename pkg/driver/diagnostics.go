package driver

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"untagged/checker-go/pkg/parser"
)

// DiagnosticSeverity captures parser diagnostic levels.
type DiagnosticSeverity string

const (
	SeverityError   DiagnosticSeverity = "error"
	SeverityWarning DiagnosticSeverity = "warning"
)

// DiagnosticLocation references a source span for diagnostics.
type DiagnosticLocation struct {
	Path      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

// ParserDiagnostic is a parse failure tied to a file.
type ParserDiagnostic struct {
	Severity DiagnosticSeverity
	Message  string
	Location DiagnosticLocation
}

// ParserDiagnosticError wraps a diagnostic for error handling.
type ParserDiagnosticError struct {
	Diagnostic ParserDiagnostic
}

func (e *ParserDiagnosticError) Error() string {
	return DescribeParserDiagnostic(e.Diagnostic)
}

// DescribeParserDiagnostic formats a parser diagnostic for CLI output.
func DescribeParserDiagnostic(diag ParserDiagnostic) string {
	message := strings.TrimSpace(diag.Message)
	message = strings.TrimSpace(strings.TrimPrefix(message, "parser:"))
	prefix := "parser: "
	if diag.Severity == SeverityWarning {
		prefix = "warning: parser: "
	}
	if location := formatDiagnosticLocation(diag.Location); location != "" {
		return fmt.Sprintf("%s%s %s", prefix, location, message)
	}
	return prefix + message
}

// ParserDiagnostics extracts every parser diagnostic from err, which may be
// an aggregate of several files' failures.
func ParserDiagnostics(err error) []ParserDiagnostic {
	var out []ParserDiagnostic
	for _, e := range multierr.Errors(err) {
		var diagErr *ParserDiagnosticError
		if errors.As(e, &diagErr) {
			out = append(out, diagErr.Diagnostic)
		}
	}
	return out
}

func newParserDiagnosticError(path string, parseErr *parser.ParseError) *ParserDiagnosticError {
	return &ParserDiagnosticError{
		Diagnostic: ParserDiagnostic{
			Severity: SeverityError,
			Message:  parseErr.Message,
			Location: DiagnosticLocation{
				Path:      path,
				Line:      parseErr.Location.Line,
				Column:    parseErr.Location.Column,
				EndLine:   parseErr.Location.EndLine,
				EndColumn: parseErr.Location.EndColumn,
			},
		},
	}
}

func formatDiagnosticLocation(loc DiagnosticLocation) string {
	path := strings.TrimSpace(loc.Path)
	line := loc.Line
	column := loc.Column
	switch {
	case path != "" && line > 0 && column > 0:
		return fmt.Sprintf("%s:%d:%d", path, line, column)
	case path != "" && line > 0:
		return fmt.Sprintf("%s:%d", path, line)
	case path != "":
		return path
	case line > 0 && column > 0:
		return fmt.Sprintf("line %d, column %d", line, column)
	case line > 0:
		return fmt.Sprintf("line %d", line)
	default:
		return ""
	}
}
