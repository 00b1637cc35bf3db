package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"notetree/internal/domain"
	"notetree/internal/infra/authority"
)

type authorityOutput struct {
	TreeID string `json:"tree_id"`
	Handle string `json:"handle"`
	Bump   uint8  `json:"bump"`
}

func runAuthority(args []string) int {
	fs := flag.NewFlagSet("authority", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var treeHex string
	var outPath string
	fs.StringVar(&treeHex, "tree", "", "tree id (hex)")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if treeHex == "" {
		fmt.Fprintln(os.Stderr, "authority requires --tree")
		return 1
	}
	treeID, err := domain.ParseAddress(treeHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse tree id: %v\n", err)
		return 1
	}

	proof, err := authority.Derive(treeID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "derive authority: %v\n", err)
		return 1
	}
	payload, err := json.MarshalIndent(authorityOutput{
		TreeID: proof.TreeID.String(),
		Handle: proof.Handle.String(),
		Bump:   proof.Bump,
	}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
