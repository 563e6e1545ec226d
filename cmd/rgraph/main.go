package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
	"github.com/repograph/repograph-go/internal/logging"

	// Extractor profiles register themselves at init time.
	_ "github.com/repograph/repograph-go/internal/extract/ansible"
	_ "github.com/repograph/repograph-go/internal/extract/generic"
	_ "github.com/repograph/repograph-go/internal/extract/python"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error onto the process exit status: 1 for bad input,
// 2 for configuration or store failures.
func exitCode(err error) int {
	switch errors.KindOf(err) {
	case errors.KindConfig, errors.KindUnavailable, errors.KindTimeout:
		return 2
	default:
		return 1
	}
}

var rootCmd = &cobra.Command{
	Use:   "rgraph",
	Short: "RepoGraph - graph-backed code intelligence for infrastructure repositories",
	Long: `RepoGraph indexes repositories into a Neo4j knowledge graph and serves
the graph to AI assistants over the Model Context Protocol.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize logger
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}
		_ = logging.Initialize(logging.DefaultConfig(verbose))

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./repograph.yaml or ~/.repograph/repograph.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Set custom version template
	rootCmd.SetVersionTemplate(`RepoGraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	// Add subcommands
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(configureCmd)
}
