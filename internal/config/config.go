package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// repoIDPattern is the only accepted shape for repository identifiers.
// Ids flow into prompt templates and Cypher parameters, so the charset is
// deliberately narrow.
var repoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Config holds all runtime configuration, grouped by concern.
type Config struct {
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Server   ServerConfig   `mapstructure:"server"`
}

// Neo4jConfig describes the graph store connection.
type Neo4jConfig struct {
	URI               string        `mapstructure:"uri"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
}

// PipelineConfig controls the indexing pipeline.
type PipelineConfig struct {
	BatchSize    int    `mapstructure:"batch_size"`
	MaxWorkers   int    `mapstructure:"max_workers"`
	RepositoryID string `mapstructure:"repository_id"`
}

// LLMConfig describes the translation endpoint.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider"`
	APIBase        string  `mapstructure:"api_base"`
	APIKey         string  `mapstructure:"api_key"`
	ModelName      string  `mapstructure:"model_name"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	PromptTemplate string  `mapstructure:"prompt_template"`
}

// ServerConfig describes the MCP/SSE endpoint.
type ServerConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	RateLimitPerMinute int    `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:               "bolt://localhost:7687",
			User:              "neo4j",
			Password:          "neo4j",
			Database:          "",
			QueryTimeout:      10 * time.Second,
			ConnectionTimeout: 5 * time.Second,
		},
		Pipeline: PipelineConfig{
			BatchSize:  100,
			MaxWorkers: 4,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			APIBase:        "http://localhost:11434/v1",
			ModelName:      "Qwen/Qwen2.5-Coder-7B-Instruct",
			Temperature:    0.0,
			MaxTokens:      2048,
			PromptTemplate: "default",
		},
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               5003,
			RateLimitPerMinute: 100,
			RateLimitBurst:     10,
		},
	}
}

// Load reads configuration from an optional config file, .env files, and
// environment variables. Precedence: env var > config file > default.
func Load(cfgFile string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("repograph")
		v.AddConfigPath(".")
		v.AddConfigPath(expandPath("~/.repograph"))
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional; only a malformed file is fatal.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that could not possibly work.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j uri must not be empty")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline batch_size must be positive, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.MaxWorkers <= 0 {
		return fmt.Errorf("pipeline max_workers must be positive, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.RepositoryID != "" && !ValidRepositoryID(c.Pipeline.RepositoryID) {
		return fmt.Errorf("invalid repository_id %q: must match [A-Za-z0-9_-]+", c.Pipeline.RepositoryID)
	}
	if c.Server.RateLimitPerMinute <= 0 {
		return fmt.Errorf("rate_limit_per_minute must be positive, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Server.RateLimitBurst <= 0 {
		return fmt.Errorf("rate_limit_burst must be positive, got %d", c.Server.RateLimitBurst)
	}
	return nil
}

// ValidRepositoryID reports whether id is a safe repository identifier.
func ValidRepositoryID(id string) bool {
	return repoIDPattern.MatchString(id)
}

// loadEnvFiles loads .env files in precedence order. Earlier files win
// because godotenv never overwrites variables that are already set.
func loadEnvFiles() {
	candidates := []string{
		".env.local",
		".env",
		expandPath("~/.repograph/.env"),
	}
	for _, f := range candidates {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// applyEnvOverrides maps prefixed environment variables onto the config.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setSeconds := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = time.Duration(f * float64(time.Second))
			}
		}
	}

	setString("NEO4J_URI", &cfg.Neo4j.URI)
	setString("NEO4J_USER", &cfg.Neo4j.User)
	setString("NEO4J_PASSWORD", &cfg.Neo4j.Password)
	setString("NEO4J_DATABASE", &cfg.Neo4j.Database)
	setSeconds("NEO4J_QUERY_TIMEOUT", &cfg.Neo4j.QueryTimeout)
	setSeconds("NEO4J_CONNECTION_TIMEOUT", &cfg.Neo4j.ConnectionTimeout)

	setInt("PIPELINE_BATCH_SIZE", &cfg.Pipeline.BatchSize)
	setInt("PIPELINE_MAX_WORKERS", &cfg.Pipeline.MaxWorkers)
	setString("PIPELINE_REPOSITORY_ID", &cfg.Pipeline.RepositoryID)

	setString("LLM_PROVIDER", &cfg.LLM.Provider)
	setString("LLM_API_BASE", &cfg.LLM.APIBase)
	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_MODEL_NAME", &cfg.LLM.ModelName)
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(f)
		}
	}
	setInt("LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	setString("LLM_PROMPT_TEMPLATE", &cfg.LLM.PromptTemplate)

	setString("MCP_SERVER_HOST", &cfg.Server.Host)
	setInt("MCP_SERVER_PORT", &cfg.Server.Port)
	setInt("MCP_RATE_LIMIT_PER_MINUTE", &cfg.Server.RateLimitPerMinute)
	setInt("MCP_RATE_LIMIT_BURST", &cfg.Server.RateLimitBurst)

	// Credentials missing from env and config fall back to the OS keyring.
	if cfg.Neo4j.Password == "" || cfg.Neo4j.Password == "neo4j" {
		if pw, err := NewKeyringManager().GetNeo4jPassword(); err == nil && pw != "" {
			cfg.Neo4j.Password = pw
		}
	}
	if cfg.LLM.APIKey == "" {
		if key, err := NewKeyringManager().GetLLMAPIKey(); err == nil && key != "" {
			cfg.LLM.APIKey = key
		}
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
