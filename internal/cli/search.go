package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchText string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the rule collection",
	Long: `Run a similarity search against the rule collection and print the matching
sections. Useful to inspect what a compliance check will retrieve.

Examples:
  compliance search -q "minimum rest before duty"
  compliance search -q "split duty" --top-k 10 --json`,
	RunE: runSearch,
}

type searchResult struct {
	Section string  `json:"section"`
	Order   int     `json:"order"`
	Score   float64 `json:"score"`
	Text    string  `json:"text"`
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	comps, err := buildComponents(cmd.Context(), cfg, log, buildOptions{})
	if err != nil {
		return err
	}
	defer comps.Close()

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	chunks, err := comps.store.Search(cmd.Context(), searchText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]searchResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, searchResult{
			Section: c.Chunk.SectionTitle,
			Order:   c.Chunk.Order,
			Score:   c.Score,
			Text:    c.Chunk.Text,
		})
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Printf("--- [%d] #%d %s (score: %.3f) ---\n", i+1, r.Order, r.Section, r.Score)
		text := []rune(r.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Println(string(text))
		fmt.Println()
	}
	return nil
}
