package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/graph"
)

var (
	clearRepository string
	clearAll        bool
	clearYes        bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete indexed data from the knowledge graph",
	Long: `Delete one repository's nodes (--repository) or the entire graph
(--all). Clearing a repository keeps shared Role nodes, since roles
are global across repositories.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().StringVarP(&clearRepository, "repository", "r", "", "repository id to clear")
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "clear the entire graph")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
}

func runClear(cmd *cobra.Command, args []string) error {
	if clearAll == (clearRepository != "") {
		return errors.UserInputf("pass exactly one of --repository or --all")
	}
	if clearRepository != "" && !config.ValidRepositoryID(clearRepository) {
		return errors.UserInputf("invalid repository id %q: must match [A-Za-z0-9_-]+", clearRepository)
	}

	target := fmt.Sprintf("repository '%s'", clearRepository)
	if clearAll {
		target = "the ENTIRE graph"
	}
	if !clearYes && !confirm(fmt.Sprintf("This will delete %s. Type 'yes' to continue: ", target)) {
		fmt.Println("Aborted.")
		return nil
	}

	ctx := context.Background()
	gateway, err := graph.NewGateway(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer gateway.Close(ctx)

	builder := graph.NewBuilder(gateway, nil, "", 0)
	if clearAll {
		if err := builder.ClearAll(ctx); err != nil {
			return err
		}
	} else {
		if err := builder.ClearRepository(ctx, clearRepository); err != nil {
			return err
		}
	}
	fmt.Printf("✅ Cleared %s\n", target)
	return nil
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}
