package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repograph/repograph-go/internal/graph"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node and edge counts in the knowledge graph",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	gateway, err := graph.NewGateway(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer gateway.Close(ctx)

	builder := graph.NewBuilder(gateway, nil, "", 0)
	stats, err := builder.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("📊 Graph Statistics\n")
	fmt.Printf("%s\n", strings.Repeat("═", 40))

	fmt.Printf("\nNodes (%d total):\n", stats.TotalNodes)
	for _, label := range sortedKeys(stats.NodesByLabel) {
		fmt.Printf("  %-16s %d\n", label, stats.NodesByLabel[label])
	}

	fmt.Printf("\nRelationships (%d total):\n", stats.TotalEdges)
	for _, kind := range sortedKeys(stats.EdgesByType) {
		fmt.Printf("  %-16s %d\n", kind, stats.EdgesByType[kind])
	}
	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
