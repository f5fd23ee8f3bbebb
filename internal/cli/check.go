package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"compliance/internal/adapter/fs"
	"compliance/internal/domain"
	"compliance/internal/telemetry"
)

var (
	checkQuery string
	checkFiles []string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a schedule or answer a question against the rules",
	Long: `Check duty schedule evidence (PDFs or images) against the rule collection,
or answer a plain question from it. The report is printed as JSON.

Examples:
  compliance check -f roster.pdf
  compliance check -f "roster/page-*.png" -q "Focus on rest periods"
  compliance check -q "What is the maximum flight duty period?"`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkQuery, "query", "q", "", "question or extra instruction")
	checkCmd.Flags().StringArrayVarP(&checkFiles, "file", "f", nil, "evidence file or glob (repeatable)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	req := domain.CheckRequest{Query: checkQuery}
	if len(checkFiles) > 0 {
		paths, err := fs.ExpandEvidence(checkFiles)
		if err != nil {
			return err
		}
		req.Files, err = fs.LoadEvidence(paths)
		if err != nil {
			return err
		}
	}

	shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry, Version, log)
	if err != nil {
		return err
	}
	defer shutdown(ctx)

	comps, err := buildComponents(ctx, cfg, log, buildOptions{reasoner: true})
	if err != nil {
		return err
	}
	defer comps.Close()

	report, err := comps.check.Check(ctx, req)
	if err != nil {
		return fmt.Errorf("compliance check failed: %w", err)
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(output))
	return nil
}
