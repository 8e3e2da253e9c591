package handlers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trendpulse/internal/core"
)

// NewAliasesCmd creates the aliases command group.
func NewAliasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Inspect or replace the tag alias table",
	}

	cmd.AddCommand(newAliasesListCmd())
	cmd.AddCommand(newAliasesSetCmd())

	return cmd
}

func newAliasesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the current alias rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.close()

			rules, err := application.store.GetAliases(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read aliases: %w", err)
			}
			if len(rules) == 0 {
				fmt.Println("No user alias rules; built-in defaults apply.")
				return nil
			}
			for _, rule := range rules {
				fmt.Printf("%s -> %s\n", rule.Alias, rule.Canonical)
			}
			return nil
		},
	}
}

func newAliasesSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set alias=canonical [alias=canonical ...]",
		Short: "Replace the alias table with the given rules",
		Long: `Replace the whole alias table. Rules are given as alias=canonical pairs.

Example:
  trendpulse aliases set 川普=特朗普 联储=美联储`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := make([]core.AliasRule, 0, len(args))
			for _, arg := range args {
				alias, canonical, ok := strings.Cut(arg, "=")
				alias = strings.TrimSpace(alias)
				canonical = strings.TrimSpace(canonical)
				if !ok || alias == "" || canonical == "" {
					return fmt.Errorf("invalid rule %q, expected alias=canonical", arg)
				}
				rules = append(rules, core.AliasRule{Alias: alias, Canonical: canonical})
			}

			application, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.close()

			if err := application.store.PutAliases(cmd.Context(), rules); err != nil {
				return fmt.Errorf("failed to write aliases: %w", err)
			}
			fmt.Printf("Alias table replaced with %d rules.\n", len(rules))
			return nil
		},
	}
}
