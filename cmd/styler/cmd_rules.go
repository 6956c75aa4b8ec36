package main

import (
	"fmt"

	"github.com/dhamidi/styler/rules"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the built-in style rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range rules.DefaultRegistry.IDs() {
				rule, ok := rules.DefaultRegistry.Get(id)
				if !ok {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %-8s %s: %s\n",
					rule.ID(), rule.DefaultSeverity(), rule.Name(), rule.Description())
			}
			return nil
		},
	}
}
