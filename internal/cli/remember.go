package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engram-ai/engram-go/internal/service"
)

var rememberRoom string

var rememberCmd = &cobra.Command{
	Use:   "remember <text>",
	Short: "Store a memory",
	Long: `Store a memory for the agent. The text is embedded and compared
against existing memories in the same scope; near-duplicates are stored
but marked non-unique so they never crowd search results.

Examples:
  engram remember "The deploy pipeline runs at 14:00 UTC"
  engram remember --room planning "Sprint review moved to Friday"`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberRoom, "room", "r", "", "room scope for the memory")
}

func runRemember(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	memories, _, err := getServices(true)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	mem, err := memories.Create(ctx, service.CreateMemoryInput{
		AgentID: agentID,
		RoomID:  rememberRoom,
		Text:    args[0],
	})
	if err != nil {
		return fmt.Errorf("store memory: %w", err)
	}

	if mem.Unique {
		fmt.Printf("Stored %s\n", mem.ID)
	} else {
		fmt.Printf("Stored %s (near-duplicate of an existing memory)\n", mem.ID)
	}
	return nil
}
