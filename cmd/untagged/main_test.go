package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	require.Equal(t, 0, code)
	require.Equal(t, cliToolVersion, strings.TrimSpace(stdout))
}

func TestRunHelp(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "untagged check")
	require.Contains(t, stdout, "untagged decode")
}

func TestRunWithoutArgumentsPrintsUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "Usage:")
}

func TestRunUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, `unknown command "frobnicate"`)
}

func TestDepsRequiresSubcommand(t *testing.T) {
	code, _, stderr := runCLI(t, "deps")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "requires a subcommand")
}

func TestDecodeRequiresUnion(t *testing.T) {
	code, _, stderr := runCLI(t, "decode", "--hex", "00")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "requires --union")
}
