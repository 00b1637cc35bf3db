package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "leaf":
		return runLeaf(args[2:])
	case "authority":
		return runAuthority(args[2:])
	case "event":
		if len(args) >= 3 && args[2] == "decode" {
			return runEventDecode(args[3:])
		}
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "notetree"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s leaf --sender <hex> (--note <text>|--in <file>) [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s authority --tree <hex> [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s event decode --in <record.cbor> [--out <file>]\n", name)
}
