// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

// Command cisplan-scout provides CLI commands for exploring and managing
// CIS Plan hierarchies.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// BuildTag is set during build
	BuildTag = "dev"
	// BuildDate is set during build
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cisplan-scout",
	Short: "Explore and manage CIS Plans",
	Long: `cisplan-scout - explore and manage CIS Plans

cisplan-scout connects to a CIS Plan server and works with the plan
hierarchy: mission networks, network segments, security domains,
HW stacks, assets, network interfaces, and GP/SP instances.

It provides commands for:

  - Browsing the hierarchy with an interactive TUI (tree, elements,
    and details panes)
  - Searching by name or id, scoped to a hierarchy level
  - Moving, renaming, and deleting entities
  - Printing the plan tree to stdout for scripts and reports

Environment Variables:
  CISPLAN_API_URL         Plan server URL (default: http://localhost:8080)
  CISPLAN_API_TIMEOUT     Request timeout, e.g. 45s (default: 30s)

Configuration can also live in ~/.cisplan-scout/config.yaml.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cisplan-scout version %s (built %s)\n", BuildTag, BuildDate)
		},
	})

	// Add completion command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for cisplan-scout.

Bash:
  $ source <(cisplan-scout completion bash)
  # Or add to ~/.bashrc:
  $ cisplan-scout completion bash >> ~/.bashrc

Zsh:
  $ source <(cisplan-scout completion zsh)
  # Or install to fpath:
  $ cisplan-scout completion zsh > "${fpath[1]}/_cisplan-scout"

Fish:
  $ cisplan-scout completion fish | source
  # Or install:
  $ cisplan-scout completion fish > ~/.config/fish/completions/cisplan-scout.fish

PowerShell:
  PS> cisplan-scout completion powershell | Out-String | Invoke-Expression
`,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.ExactArgs(1),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	})
}
