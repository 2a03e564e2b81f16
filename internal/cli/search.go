package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engram-ai/engram-go/internal/search"
	"github.com/engram-ai/engram-go/internal/service"
)

var (
	searchRoom      string
	searchLimit     int
	searchThreshold float64
	searchUnique    bool
	searchKnowledge bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search memories or knowledge",
	Long: `Search the agent's memories (default) or the knowledge base with
hybrid vector + keyword ranking.

Examples:
  engram search "deploy pipeline"
  engram search --room planning "sprint review"
  engram search --knowledge "authentication flow"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchRoom, "room", "r", "", "restrict to one room")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", 0.7, "minimum vector similarity")
	searchCmd.Flags().BoolVar(&searchUnique, "unique", false, "only consider unique memories")
	searchCmd.Flags().BoolVarP(&searchKnowledge, "knowledge", "k", false, "search the knowledge base instead of memories")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	memories, knowledge, err := getServices(true)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	var results []search.ScoredCandidate
	if searchKnowledge {
		results, err = knowledge.Search(ctx, service.SearchKnowledgeInput{
			AgentID:        agentID,
			Text:           query,
			MatchThreshold: searchThreshold,
			MatchCount:     searchLimit,
		})
	} else {
		results, err = memories.Search(ctx, service.SearchMemoriesInput{
			AgentID:        agentID,
			RoomID:         searchRoom,
			Text:           query,
			UniqueOnly:     searchUnique,
			MatchThreshold: searchThreshold,
			MatchCount:     searchLimit,
		})
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		text := r.Record.Content.Text
		if len(text) > 100 && !verbose {
			text = text[:100] + "..."
		}
		fmt.Printf("%d. %s\n   %s\n", i+1, r.Record.ID, text)
		if verbose {
			fmt.Printf("   vector=%.3f keyword=%.2f combined=%.3f\n",
				r.VectorScore, r.KeywordScore, r.CombinedScore())
		}
		fmt.Println()
	}

	return nil
}
