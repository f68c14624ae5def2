// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// ANSI color codes for colorful output
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var (
	treeJSON  bool
	treeLevel string
	treeDemo  bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the plan hierarchy",
	Long: `Print the full CIS Plan hierarchy to stdout.

The output walks the plan from the root: mission networks, network
segments, security domains, HW stacks, assets, and the interfaces and
GP/SP instances under each asset.

Examples:
  # Print the plan tree
  cisplan-scout tree

  # Only show entities down to security domains
  cisplan-scout tree --level securityDomain

  # Machine-readable output for scripts
  cisplan-scout tree --json

  # No server required
  cisplan-scout tree --demo
`,
	RunE: runTreeCommand,
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().BoolVar(&treeJSON, "json", false, "Output as JSON")
	treeCmd.Flags().StringVar(&treeLevel, "level", "", "Deepest level to print (e.g. securityDomain)")
	treeCmd.Flags().BoolVar(&treeDemo, "demo", false, "Print a generated demo plan, no server required")
}

func runTreeCommand(cmd *cobra.Command, args []string) error {
	maxDepth := len(cisplan.AllTypes)
	if treeLevel != "" {
		t := cisplan.EntityType(treeLevel)
		if !t.Valid() {
			return fmt.Errorf("unknown level %q (valid: %s)", treeLevel, levelNames())
		}
		for i, known := range cisplan.AllTypes {
			if known == t {
				maxDepth = i
				break
			}
		}
	}

	client, err := buildPlanClient(treeDemo)
	if err != nil {
		return err
	}
	root, err := client.FetchTree(cmd.Context())
	if err != nil {
		return err
	}

	if treeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	}

	repo := cisplan.NewRepository(root)
	counts := repo.CountByType()
	total := 0
	for _, n := range counts {
		total += n
	}

	fmt.Printf("%s%s%s %s(%d entities)%s\n", colorBold, root.Name, colorReset, colorDim, total-1, colorReset)
	fmt.Println(strings.Repeat("─", 60))

	kids := root.AllChildren()
	for i, kid := range kids {
		printTreeEntity(kid, "", i == len(kids)-1, 1, maxDepth)
	}
	return nil
}

func printTreeEntity(e *cisplan.Entity, prefix string, last bool, depth, maxDepth int) {
	if depth > maxDepth {
		return
	}

	connector := "├──"
	childPrefix := prefix + "│   "
	if last {
		connector = "└──"
		childPrefix = prefix + "    "
	}

	fmt.Printf("%s%s %s%s%s %s %s[%s]%s%s\n",
		prefix, connector,
		colorCyan, e.Name, colorReset,
		treeStatusLabel(e),
		colorDim, e.ID, entityNote(e), colorReset)

	kids := e.AllChildren()
	for i, kid := range kids {
		printTreeEntity(kid, childPrefix, i == len(kids)-1, depth+1, maxDepth)
	}
}

// treeStatusLabel surfaces the operational status attribute when present.
func treeStatusLabel(e *cisplan.Entity) string {
	status, ok := e.Attrs["operationalStatus"]
	if !ok {
		return ""
	}
	if status == "active" {
		return colorGreen + status + colorReset
	}
	return colorYellow + status + colorReset
}

func entityNote(e *cisplan.Entity) string {
	if len(e.ConfigItems) > 0 {
		return fmt.Sprintf(", %d config items", len(e.ConfigItems))
	}
	return ""
}

func levelNames() string {
	names := make([]string, 0, len(cisplan.AllTypes))
	for _, t := range cisplan.AllTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
