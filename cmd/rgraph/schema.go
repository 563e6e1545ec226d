package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/graph"
	"github.com/repograph/repograph-go/internal/schema"
)

var schemaApply bool

var schemaCmd = &cobra.Command{
	Use:   "schema [profile]",
	Short: "Show or apply a schema profile's constraints and indexes",
	Long: `Without arguments, list the available schema profiles. With a profile
name, print the DDL it generates; add --apply to run the statements
against Neo4j.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaApply, "apply", false, "run the DDL against Neo4j instead of printing it")
}

func runSchema(cmd *cobra.Command, args []string) error {
	registry, err := schema.NewRegistry()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		fmt.Printf("Available profiles:\n")
		for _, name := range registry.Names() {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	profile, err := registry.Load(args[0])
	if err != nil {
		return errors.UserInputf("unknown profile %q (available: %s)",
			args[0], strings.Join(registry.Names(), ", "))
	}

	statements := append(profile.ConstraintStatements(), profile.IndexStatements()...)

	if !schemaApply {
		for _, stmt := range statements {
			fmt.Printf("%s;\n", stmt)
		}
		return nil
	}

	ctx := context.Background()
	gateway, err := graph.NewGateway(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer gateway.Close(ctx)

	for _, stmt := range statements {
		if _, err := gateway.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	fmt.Printf("✅ Applied %d schema statements\n", len(statements))
	return nil
}
