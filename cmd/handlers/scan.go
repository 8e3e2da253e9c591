package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trendpulse/internal/pipeline"
)

// NewScanCmd creates the scan command for one-shot pipeline runs.
func NewScanCmd() *cobra.Command {
	var (
		force   bool
		withAI  bool
		noAI    bool
		keyword string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single scan and print the resulting report",
		Long: `Run one full pipeline scan from the command line.

By default the scan reuses today's report when one already exists; pass
--force to rebuild it. The AI reasoning stage follows the configuration
unless overridden with --ai or --no-ai.

Examples:
  # Scan with configured defaults
  trendpulse scan

  # Force a rebuild without the AI stage
  trendpulse scan --force --no-ai

  # Scan filtered to a keyword, JSON output
  trendpulse scan --keyword 降息 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if withAI && noAI {
				return fmt.Errorf("--ai and --no-ai are mutually exclusive")
			}
			return runScan(cmd, force, withAI, noAI, keyword, asJSON)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if today's report exists")
	cmd.Flags().BoolVar(&withAI, "ai", false, "Force the AI reasoning stage on")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "Force the AI reasoning stage off")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Only keep items matching this keyword")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full report as JSON")

	return cmd
}

func runScan(cmd *cobra.Command, force, withAI, noAI bool, keyword string, asJSON bool) error {
	ctx := cmd.Context()

	application, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer application.close()

	opts := pipeline.Options{ForceRefresh: force, Keyword: keyword}
	if withAI {
		enabled := true
		opts.EnableReasoning = &enabled
	}
	if noAI {
		disabled := false
		opts.EnableReasoning = &disabled
	}

	result, err := application.scanner.Scan(ctx, opts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result.Report)
	}

	report := result.Report
	fmt.Printf("Report %s", report.Meta.DayKey)
	if result.Cached {
		fmt.Print(" (cached)")
	}
	fmt.Println()
	fmt.Printf("  scanned:  %d items (%d filtered)\n", report.Meta.ItemsScanned, report.Meta.ItemsFiltered)
	fmt.Printf("  feed:     %d cards in %d themes\n", len(report.Feed), len(report.Themes))
	fmt.Printf("  reasoning: %s (%d calls)\n", report.Meta.UsedReasoning, result.LLMCalls)
	if report.Insight != "" {
		fmt.Printf("\n%s\n", report.Insight)
	}
	for _, trend := range report.Trends {
		fmt.Printf("  - %s\n", trend)
	}
	return nil
}
