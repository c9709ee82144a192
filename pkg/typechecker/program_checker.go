package typechecker

import (
	"fmt"
	"path/filepath"
	"sort"

	"untagged/checker-go/pkg/ast"
	"untagged/checker-go/pkg/driver"
)

// ModuleDiagnostic ties a diagnostic to the package/files that produced it.
type ModuleDiagnostic struct {
	Package    string
	Files      []string
	Diagnostic Diagnostic
	Source     SourceHint
}

// SourceHint provides a best-effort reference to the originating file.
type SourceHint struct {
	Path   string
	Line   int
	Column int
}

// DescribeModuleDiagnostic formats a module diagnostic for human-readable output.
func DescribeModuleDiagnostic(diag ModuleDiagnostic) string {
	message := diag.Diagnostic.Message
	if diag.Diagnostic.Severity == SeverityWarning {
		message = "warning: " + message
	}
	if diag.Package != "" {
		message = fmt.Sprintf("%s: %s", diag.Package, message)
	}
	if diag.Source.Path != "" {
		switch {
		case diag.Source.Line > 0 && diag.Source.Column > 0:
			message = fmt.Sprintf("%s (%s:%d:%d)", message, diag.Source.Path, diag.Source.Line, diag.Source.Column)
		case diag.Source.Line > 0:
			message = fmt.Sprintf("%s (%s:%d)", message, diag.Source.Path, diag.Source.Line)
		default:
			message = fmt.Sprintf("%s (%s)", message, diag.Source.Path)
		}
	} else if len(diag.Files) > 0 {
		message = fmt.Sprintf("%s (e.g., %s)", message, diag.Files[0])
	}
	return message
}

// ModuleLayouts pairs a module with the union layouts it declared.
type ModuleLayouts struct {
	Package string              `json:"package" yaml:"package"`
	Layouts []*LayoutDescriptor `json:"layouts" yaml:"layouts"`
}

// CheckResult aggregates diagnostics, layouts and verdicts for a program check.
type CheckResult struct {
	Diagnostics []ModuleDiagnostic
	Layouts     []ModuleLayouts
	Verdicts    map[string][]PatternVerdict
}

// HasErrors reports whether any diagnostic is an error.
func (r CheckResult) HasErrors() bool {
	for _, diag := range r.Diagnostics {
		if diag.Diagnostic.IsError() {
			return true
		}
	}
	return false
}

// ProgramChecker coordinates checking across dependency-ordered modules.
type ProgramChecker struct {
	opts    Options
	exports map[string]map[string]Type
}

// NewProgramChecker constructs a session that can check entire programs.
func NewProgramChecker(opts Options) *ProgramChecker {
	return &ProgramChecker{
		opts:    opts,
		exports: make(map[string]map[string]Type),
	}
}

// Check walks every module in the supplied program. Public types of earlier
// modules are visible to later ones.
func (pc *ProgramChecker) Check(program *driver.Program) (CheckResult, error) {
	if program == nil {
		return CheckResult{}, fmt.Errorf("typechecker: program is nil")
	}
	result := CheckResult{Verdicts: make(map[string][]PatternVerdict)}
	for _, mod := range program.Modules {
		if mod == nil || mod.AST == nil {
			continue
		}
		checker := NewWithOptions(pc.opts)
		checker.SetPrelude(pc.visibleTypes())
		checker.SetNodeOrigins(mod.NodeOrigins)

		moduleDiags, err := checker.CheckModule(mod.AST)
		if err != nil {
			return result, err
		}
		for _, diag := range moduleDiags {
			result.Diagnostics = append(result.Diagnostics, ModuleDiagnostic{
				Package:    mod.Package,
				Files:      mod.Files,
				Diagnostic: diag,
				Source:     hintForNode(mod, diag.Node),
			})
		}
		if layouts := checker.Layouts(); len(layouts) > 0 {
			result.Layouts = append(result.Layouts, ModuleLayouts{Package: mod.Package, Layouts: layouts})
		}
		result.Verdicts[mod.Package] = append(result.Verdicts[mod.Package], checker.Verdicts()...)
		pc.captureExports(mod.Package, checker)
	}
	return result, nil
}

func (pc *ProgramChecker) captureExports(pkg string, checker *Checker) {
	exports := checker.Exports()
	if len(exports) == 0 {
		return
	}
	rec, ok := pc.exports[pkg]
	if !ok {
		rec = make(map[string]Type)
		pc.exports[pkg] = rec
	}
	for name, typ := range exports {
		rec[name] = typ
	}
}

// visibleTypes flattens exports of every package checked so far. Packages
// are visited in name order so a later name wins deterministically.
func (pc *ProgramChecker) visibleTypes() map[string]Type {
	pkgs := make([]string, 0, len(pc.exports))
	for pkg := range pc.exports {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	out := make(map[string]Type)
	for _, pkg := range pkgs {
		for name, typ := range pc.exports[pkg] {
			out[name] = typ
		}
	}
	return out
}

// PackageExports returns a shallow copy of the exported types of a package.
func (pc *ProgramChecker) PackageExports(pkg string) map[string]Type {
	rec, ok := pc.exports[pkg]
	if !ok || len(rec) == 0 {
		return nil
	}
	out := make(map[string]Type, len(rec))
	for name, typ := range rec {
		out[name] = typ
	}
	return out
}

func hintForNode(mod *driver.Module, node ast.Node) SourceHint {
	var hint SourceHint
	if mod == nil {
		return hint
	}
	if node != nil && mod.NodeOrigins != nil {
		hint.Path = mod.NodeOrigins[node]
	}
	if hint.Path == "" && len(mod.Files) > 0 {
		hint.Path = mod.Files[0]
	}
	if node != nil {
		span := node.Span()
		hint.Line = span.Start.Line
		hint.Column = span.Start.Column
	}
	return hint
}

func formatNodeLocation(node ast.Node, origins map[ast.Node]string) string {
	if node == nil {
		return "<unknown location>"
	}
	path := "<unknown file>"
	if origins != nil {
		if origin, ok := origins[node]; ok && origin != "" {
			path = filepath.ToSlash(origin)
		}
	}
	span := node.Span()
	line := span.Start.Line
	column := span.Start.Column
	if line <= 0 {
		line = 0
	}
	if column <= 0 {
		column = 0
	}
	return fmt.Sprintf("%s:%d:%d", path, line, column)
}
