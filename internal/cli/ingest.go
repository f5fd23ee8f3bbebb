package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <rulebook>",
	Short: "Replace the rule collection with a rulebook",
	Long: `Parse a rulebook (PDF, markdown or text), split it into one chunk per
top-level "# " heading, embed every chunk and publish the result as the new
rule collection. The previous collection stays active until the new one is
complete.

Examples:
  compliance ingest rules.pdf
  compliance ingest docs/ftl-rules.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("rulebook does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("rulebook is a directory: %s", path)
	}

	cfg := GetConfig()
	ctx := cmd.Context()

	comps, err := buildComponents(ctx, cfg, log, buildOptions{ingest: true})
	if err != nil {
		return err
	}
	defer comps.Close()

	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)
	comps.index.SetProgress(func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			rate := float64(done) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	})

	fmt.Printf("Ingesting %s...\n", path)

	result, err := comps.ingest.Ingest(ctx, path)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\n%s\n", result.Message)
	fmt.Printf("  Chunks processed: %d\n", result.ChunksProcessed)
	fmt.Printf("  Collection:       %s (generation %d)\n", cfg.Store.Collection, comps.collection.Generation())
	if cfg.Store.Path != "memory" {
		fmt.Printf("  Stored at:        %s\n", cfg.Store.Path)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
