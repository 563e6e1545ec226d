package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/extract"
	"github.com/repograph/repograph-go/internal/graph"
	"github.com/repograph/repograph-go/internal/schema"
)

var (
	indexRepository string
	indexProfile    string
	indexClear      bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository into the knowledge graph",
	Long: `Walk a repository tree, classify it (Ansible, Python, or generic),
extract entities and relationships, and merge them into Neo4j.
Re-running the command on the same repository is idempotent.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexRepository, "repository", "r", "", "repository id (letters, digits, underscore, hyphen)")
	indexCmd.Flags().StringVar(&indexProfile, "profile", "", "force a schema profile instead of auto-detecting")
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "delete the repository's existing nodes before indexing")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	root := args[0]

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return errors.UserInputf("not a directory: %s", root)
	}

	repoID := indexRepository
	if repoID == "" {
		repoID = cfg.Pipeline.RepositoryID
	}
	if repoID == "" {
		return errors.UserInputf("no repository id: pass --repository or set pipeline.repository_id")
	}
	if !config.ValidRepositoryID(repoID) {
		return errors.UserInputf("invalid repository id %q: must match [A-Za-z0-9_-]+", repoID)
	}

	profileName := indexProfile
	if profileName == "" {
		detection := extract.Detect(root)
		profileName = detection.Profile
		fmt.Printf("🔍 Detected profile: %s (confidence %.2f)\n", detection.Profile, detection.Confidence)
		if len(detection.Indicators) > 0 {
			fmt.Printf("   Indicators: %s\n", strings.Join(detection.Indicators, ", "))
		}
	}

	registry, err := schema.NewRegistry()
	if err != nil {
		return err
	}
	profile, err := registry.Load(profileName)
	if err != nil {
		return errors.UserInputf("unknown profile %q (available: %s)",
			profileName, strings.Join(registry.Names(), ", "))
	}

	extractor, err := extract.New(profileName, cfg.Pipeline.MaxWorkers)
	if err != nil {
		return errors.UserInputf("%v", err)
	}

	gateway, err := graph.NewGateway(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer gateway.Close(ctx)

	builder := graph.NewBuilder(gateway, profile, repoID, cfg.Pipeline.BatchSize)

	if indexClear {
		fmt.Printf("🗑️  Clearing repository '%s'...\n", repoID)
		if err := builder.ClearRepository(ctx, repoID); err != nil {
			return err
		}
	}

	if err := builder.InitializeSchema(ctx); err != nil {
		return err
	}

	fmt.Printf("📦 Indexing %s as '%s'...\n", root, repoID)

	err = extractor.Entities(ctx, root, repoID, func(e extract.Entity) error {
		return builder.AddEntity(ctx, e)
	})
	if err != nil {
		return err
	}
	err = extractor.Edges(ctx, root, repoID, func(e extract.Edge) error {
		return builder.AddEdge(ctx, e)
	})
	if err != nil {
		return err
	}
	if err := builder.Flush(ctx); err != nil {
		return err
	}

	stats := builder.BuildStats()
	fmt.Printf("\n✅ Indexing complete\n")
	fmt.Printf("   Nodes written: %d\n", stats.NodesWritten)
	fmt.Printf("   Edges written: %d\n", stats.EdgesWritten)
	if stats.NodesDropped > 0 || stats.EdgesDropped > 0 {
		fmt.Printf("   Dropped: %d nodes, %d edges (see log for details)\n",
			stats.NodesDropped, stats.EdgesDropped)
	}
	if stats.BatchesFailed > 0 {
		fmt.Printf("   ⚠️  %d batches failed; the graph is incomplete\n", stats.BatchesFailed)
	}
	return nil
}
