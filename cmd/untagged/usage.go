package main

import (
	"fmt"
	"io"
)

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  untagged check [--policy no-drop|copy-only|permissive] [--pointer-width 4|8] [paths...]")
	fmt.Fprintln(w, "  untagged layout [--format yaml|json] [paths...]")
	fmt.Fprintln(w, "  untagged decode --union <name> --hex <bytes> [paths...]")
	fmt.Fprintln(w, "  untagged deps install")
	fmt.Fprintln(w, "  untagged version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprintln(w, "  --manifest <path>    use this untagged.yml instead of searching upwards")
	fmt.Fprintln(w, "  --log-level <level>  logrus level (panic, fatal, error, warn, info, debug, trace)")
}
