package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/repograph/repograph-go/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup for Neo4j and LLM credentials",
	Long: `Walk through the connection settings. Non-secret values are written to
~/.repograph/repograph.yaml; the Neo4j password and LLM API key go to
the OS keychain when one is available.`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("🔧 RepoGraph Setup\n")
	fmt.Printf("%s\n\n", strings.Repeat("═", 50))

	fmt.Printf("Neo4j connection:\n")
	uri := promptDefault(reader, "  URI", cfg.Neo4j.URI)
	user := promptDefault(reader, "  User", cfg.Neo4j.User)
	password, err := promptSecret("  Password (hidden, empty keeps current): ")
	if err != nil {
		return err
	}

	fmt.Printf("\nLLM translation endpoint:\n")
	provider := promptDefault(reader, "  Provider (openai/gemini)", cfg.LLM.Provider)
	apiBase := cfg.LLM.APIBase
	if provider == "openai" {
		apiBase = promptDefault(reader, "  API base (Ollama/vLLM compatible)", cfg.LLM.APIBase)
	}
	model := promptDefault(reader, "  Model", cfg.LLM.ModelName)
	fmt.Printf("  Current API key: %s\n", config.MaskSecret(cfg.LLM.APIKey))
	apiKey, err := promptSecret("  API key (hidden, empty keeps current): ")
	if err != nil {
		return err
	}

	// Secrets go to the keychain, never to the config file.
	km := config.NewKeyringManager()
	if password != "" || apiKey != "" {
		if km.IsAvailable() {
			if password != "" {
				if err := km.SetNeo4jPassword(password); err != nil {
					return err
				}
				fmt.Printf("  ✅ Neo4j password saved to OS keychain\n")
			}
			if apiKey != "" {
				if err := km.SetLLMAPIKey(apiKey); err != nil {
					return err
				}
				fmt.Printf("  ✅ LLM API key saved to OS keychain\n")
			}
		} else {
			fmt.Printf("  ⚠️  OS keychain unavailable (headless system?)\n")
			fmt.Printf("     Set NEO4J_PASSWORD and LLM_API_KEY in the environment or\n")
			fmt.Printf("     in ~/.repograph/.env instead.\n")
		}
	}

	path, err := writeConfigFile(uri, user, provider, apiBase, model)
	if err != nil {
		return err
	}

	fmt.Printf("\n✅ Configuration written to %s\n", path)
	fmt.Printf("   Next: rgraph index <path> --repository <id>\n")
	return nil
}

// writeConfigFile persists the non-secret settings, preserving the rest
// of the current configuration.
func writeConfigFile(uri, user, provider, apiBase, model string) (string, error) {
	out := map[string]any{
		"neo4j": map[string]any{
			"uri":      uri,
			"user":     user,
			"database": cfg.Neo4j.Database,
		},
		"llm": map[string]any{
			"provider":   provider,
			"api_base":   apiBase,
			"model_name": model,
		},
		"server": map[string]any{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		},
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return "", err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".repograph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "repograph.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func promptDefault(reader *bufio.Reader, label, def string) string {
	fmt.Printf("%s [%s]: ", label, def)
	line, err := reader.ReadString('\n')
	if err != nil {
		return def
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func promptSecret(label string) (string, error) {
	fmt.Print(label)
	bytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(bytes)), nil
}
