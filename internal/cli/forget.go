package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var forgetMemory bool

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Remove a knowledge document or a memory",
	Long: `Remove a knowledge document (including its chunks) by ID, or a
single memory with --memory.

Examples:
  engram forget 6f1f7c2a-...
  engram forget --memory 4be90d11-...`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func init() {
	forgetCmd.Flags().BoolVarP(&forgetMemory, "memory", "m", false, "remove a memory instead of knowledge")
}

func runForget(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := context.Background()

	memories, knowledge, err := getServices(false)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	if forgetMemory {
		if err := memories.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete memory: %w", err)
		}
		fmt.Printf("Removed memory %s\n", id)
		return nil
	}

	removed, err := knowledge.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("remove knowledge: %w", err)
	}
	fmt.Printf("Removed %d document(s)\n", removed)
	return nil
}
