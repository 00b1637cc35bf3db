package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"notetree/pkg/leafcodec"
)

type eventOutput struct {
	Leaf      string `json:"leaf"`
	Owner     string `json:"owner"`
	Recipient string `json:"recipient"`
	Note      string `json:"note"`
}

func runEventDecode(args []string) int {
	fs := flag.NewFlagSet("event decode", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var outPath string
	fs.StringVar(&inPath, "in", "", "canonical event record path")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "event decode requires --in")
		return 1
	}
	record, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read record: %v\n", err)
		return 1
	}

	event, err := leafcodec.DecodeEvent(record)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode record: %v\n", err)
		return 1
	}
	payload, err := json.MarshalIndent(eventOutput{
		Leaf:      event.Leaf.String(),
		Owner:     event.Owner.String(),
		Recipient: event.Recipient.String(),
		Note:      event.Note,
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
