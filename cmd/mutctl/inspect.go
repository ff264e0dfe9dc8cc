package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rivergrove/mutengine/internal/tracker"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Mutate a scripted record and print the resulting delta",
		Long: `Wraps a small fixed record, applies a handful of mutations
across every operation tag, and prints the accumulated delta — for
inspecting how the tracker records a mutation sequence.`,
		RunE: runInspect,
	}
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	record := map[string]any{
		"name":    "Ada Lovelace",
		"credits": 0,
		"tags":    []any{"mathematician"},
	}

	root := tracker.Wrap(record)
	root.Set("credits", 42)
	root.At("tags").Push("programmer")
	root.Delete("name")

	d := root.GetDelta()

	if cc.JSON {
		encoded, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Errorf("inspect: marshaling delta as json: %w", err)
		}

		fmt.Println(string(encoded))

		return nil
	}

	encoded, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("inspect: marshaling delta as yaml: %w", err)
	}

	fmt.Print(string(encoded))

	return nil
}
