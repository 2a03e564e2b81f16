package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/engram-ai/engram-go/internal/service"
)

var ingestShared bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a document into the knowledge base",
	Long: `Ingest a text document. Long documents are split into chunks so
search can return the relevant passage instead of the whole file.
Re-ingesting the same document is idempotent.

Examples:
  engram ingest notes/architecture.txt
  engram ingest --shared docs/onboarding.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestShared, "shared", false, "make the document visible to all agents")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	_, knowledge, err := getServices(true)
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	result, err := knowledge.Create(ctx, service.CreateKnowledgeInput{
		AgentID:  agentID,
		Text:     string(content),
		Metadata: map[string]any{"source": path},
		IsShared: ingestShared,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("Ingested %s as %s (%d chunks created, %d already present)\n",
		path, result.MainID, result.ChunksCreated, result.ChunksSkipped)
	return nil
}
