package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store counts and search capability",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	memories, knowledge, err := getServices(false)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	memCount, err := memories.Count(ctx, agentID)
	if err != nil {
		return fmt.Errorf("count memories: %w", err)
	}
	knowCount, err := knowledge.Count(ctx, agentID)
	if err != nil {
		return fmt.Errorf("count knowledge: %w", err)
	}

	fmt.Printf("Agent:          %s\n", agentID)
	fmt.Printf("Memories:       %d\n", memCount)
	fmt.Printf("Knowledge docs: %d\n", knowCount)
	fmt.Printf("Vector search:  %s\n", dbClient.Capability().Current())
	return nil
}
