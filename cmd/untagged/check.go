package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"untagged/checker-go/pkg/typechecker"
)

func runCheck(args []string, stdout, stderr io.Writer) int {
	var (
		global globalFlags
		flags  checkFlags
	)
	fs := newFlagSet("check", stderr)
	global.register(fs)
	flags.register(fs)
	if done, code := parseFlags(fs, args); done {
		return code
	}

	results, ok := checkPaths(global, flags, fs.Args(), stderr)
	if !ok {
		return 1
	}
	failed := false
	warnings := 0
	for _, result := range results {
		for _, diag := range result.Diagnostics {
			fmt.Fprintln(stderr, typechecker.DescribeModuleDiagnostic(diag))
			if diag.Diagnostic.IsError() {
				failed = true
			} else {
				warnings++
			}
		}
	}
	if failed {
		return 1
	}
	if warnings > 0 {
		fmt.Fprintf(stdout, "check: ok (%d warning(s))\n", warnings)
		return 0
	}
	fmt.Fprintln(stdout, "check: ok")
	return 0
}

// checkPaths loads and checks every entry. Load and configuration failures
// are printed to stderr and reported through ok=false.
func checkPaths(global globalFlags, flags checkFlags, paths []string, stderr io.Writer) ([]typechecker.CheckResult, bool) {
	s, err := openSession(global, paths, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, false
	}
	opts, err := checkerOptions(s.manifest, flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, false
	}
	s.logger.WithFields(logrus.Fields{
		"policy":        opts.Policy,
		"pointer_width": opts.Target.PointerWidth,
	}).Debug("checker options")

	var results []typechecker.CheckResult
	for _, entry := range s.entries(paths) {
		program, err := s.load(entry)
		if err != nil {
			reportLoadError(stderr, err)
			return nil, false
		}
		result, err := typechecker.NewProgramChecker(opts).Check(program)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return nil, false
		}
		s.logger.WithFields(logrus.Fields{
			"entry":       entry,
			"modules":     len(program.Modules),
			"diagnostics": len(result.Diagnostics),
		}).Info("checked")
		results = append(results, result)
	}
	return results, true
}
