package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"notetree/internal/domain"
	"notetree/pkg/leafcodec"
)

type leafOutput struct {
	Sender string `json:"sender"`
	Leaf   string `json:"leaf"`
}

func runLeaf(args []string) int {
	fs := flag.NewFlagSet("leaf", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var senderHex string
	var note string
	var inPath string
	var outPath string
	fs.StringVar(&senderHex, "sender", "", "sender address (hex)")
	fs.StringVar(&note, "note", "", "note content")
	fs.StringVar(&inPath, "in", "", "note content file")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if senderHex == "" || (note == "" && inPath == "") {
		fmt.Fprintln(os.Stderr, "leaf requires --sender and one of --note or --in")
		return 1
	}
	sender, err := domain.ParseAddress(senderHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse sender: %v\n", err)
		return 1
	}
	content := []byte(note)
	if inPath != "" {
		content, err = os.ReadFile(inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read note: %v\n", err)
			return 1
		}
	}
	if len(content) > domain.MaxNoteBytes {
		fmt.Fprintf(os.Stderr, "note exceeds %d bytes\n", domain.MaxNoteBytes)
		return 1
	}

	leaf := leafcodec.EncodeLeaf(content, sender)
	payload, err := json.MarshalIndent(leafOutput{
		Sender: sender.String(),
		Leaf:   leaf.String(),
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
