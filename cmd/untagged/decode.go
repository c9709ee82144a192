package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"untagged/checker-go/pkg/runtime"
	"untagged/checker-go/pkg/typechecker"
)

// runDecode reinterprets raw bytes as every variant of a union, the way an
// unsafe read of each variant would see them.
func runDecode(args []string, stdout, stderr io.Writer) int {
	var (
		global globalFlags
		flags  checkFlags
		union  string
		raw    string
	)
	fs := newFlagSet("decode", stderr)
	global.register(fs)
	flags.register(fs)
	fs.StringVar(&union, "union", "", "name of the untagged union to decode")
	fs.StringVar(&raw, "hex", "", "little-endian bytes of the value, hex encoded")
	if done, code := parseFlags(fs, args); done {
		return code
	}
	if union == "" {
		fmt.Fprintln(stderr, "untagged decode requires --union")
		return 1
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(raw), ""))
	if err != nil {
		fmt.Fprintf(stderr, "invalid --hex value: %v\n", err)
		return 1
	}

	results, ok := checkPaths(global, flags, fs.Args(), stderr)
	if !ok {
		return 1
	}
	var matches []*typechecker.LayoutDescriptor
	for _, result := range results {
		for _, diag := range result.Diagnostics {
			if diag.Diagnostic.IsError() {
				fmt.Fprintln(stderr, typechecker.DescribeModuleDiagnostic(diag))
				return 1
			}
		}
		for _, mod := range result.Layouts {
			for _, desc := range mod.Layouts {
				if desc.Union == union {
					matches = append(matches, desc)
				}
			}
		}
	}
	switch len(matches) {
	case 0:
		fmt.Fprintf(stderr, "no untagged union named %s\n", union)
		return 1
	case 1:
	default:
		fmt.Fprintf(stderr, "untagged union %s is declared %d times\n", union, len(matches))
		return 1
	}

	storage, err := runtime.FromBytes(matches[0], data)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	for _, variant := range matches[0].Variants {
		values, err := storage.UnsafeRead(variant.Name)
		if err != nil {
			fmt.Fprintf(stdout, "%s::%s: %v\n", union, variant.Name, err)
			continue
		}
		fmt.Fprintf(stdout, "%s::%s\n", union, formatVariant(variant, values))
	}
	return 0
}

func formatVariant(variant typechecker.VariantLayout, values []runtime.Value) string {
	if len(variant.Fields) == 0 {
		return variant.Name
	}
	parts := make([]string, len(values))
	named := false
	for i, value := range values {
		name := variant.Fields[i].Name
		if _, err := strconv.Atoi(name); err != nil {
			named = true
			parts[i] = name + ": " + value.String()
			continue
		}
		parts[i] = value.String()
	}
	if named {
		return fmt.Sprintf("%s { %s }", variant.Name, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s(%s)", variant.Name, strings.Join(parts, ", "))
}
