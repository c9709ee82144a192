package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"untagged/checker-go/pkg/typechecker"
)

type layoutReport struct {
	Modules []typechecker.ModuleLayouts `json:"modules" yaml:"modules"`
}

func runLayout(args []string, stdout, stderr io.Writer) int {
	var (
		global globalFlags
		flags  checkFlags
		format string
	)
	fs := newFlagSet("layout", stderr)
	global.register(fs)
	flags.register(fs)
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if done, code := parseFlags(fs, args); done {
		return code
	}
	if format != "yaml" && format != "json" {
		fmt.Fprintf(stderr, "unsupported format %q (expected yaml or json)\n", format)
		return 1
	}

	results, ok := checkPaths(global, flags, fs.Args(), stderr)
	if !ok {
		return 1
	}
	report := layoutReport{Modules: []typechecker.ModuleLayouts{}}
	failed := false
	for _, result := range results {
		for _, diag := range result.Diagnostics {
			if diag.Diagnostic.IsError() {
				fmt.Fprintln(stderr, typechecker.DescribeModuleDiagnostic(diag))
				failed = true
			}
		}
		report.Modules = append(report.Modules, result.Layouts...)
	}
	if failed {
		return 1
	}
	if err := writeLayoutReport(stdout, report, format); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func writeLayoutReport(w io.Writer, report layoutReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("layout: encode json: %w", err)
		}
		return nil
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("layout: encode yaml: %w", err)
	}
	return enc.Close()
}
