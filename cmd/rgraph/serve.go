package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/repograph/repograph-go/internal/graph"
	"github.com/repograph/repograph-go/internal/mcp"
	"github.com/repograph/repograph-go/internal/translate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP query gateway over SSE",
	Long: `Start the Model Context Protocol server. AI assistants connect over
SSE and query the knowledge graph through natural-language and
deterministic tools. Stops cleanly on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := graph.NewGateway(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer gateway.Close(ctx)

	translator, err := translate.New(ctx, cfg.LLM)
	if err != nil {
		return err
	}

	server := mcp.NewHTTPServer(cfg.Server, gateway, translator,
		cfg.Pipeline.RepositoryID, gateway.HealthCheck)

	fmt.Printf("🚀 RepoGraph MCP server\n")
	fmt.Printf("   SSE endpoint: http://%s:%d/sse\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   Health:       http://%s:%d/health\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   LLM provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.ModelName)
	if cfg.Pipeline.RepositoryID != "" {
		fmt.Printf("   Default repository: %s\n", cfg.Pipeline.RepositoryID)
	}

	return server.ListenAndServe(ctx)
}
