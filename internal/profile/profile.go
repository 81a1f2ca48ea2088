package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where the server stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Secret signs and verifies bearer tokens
	Secret string

	// LLM configuration
	LLMAPIKey  string // ANIMESOMMELIER_LLM_API_KEY
	LLMBaseURL string // ANIMESOMMELIER_LLM_BASE_URL (default: https://api.openai.com/v1)
	LLMModel   string // ANIMESOMMELIER_LLM_MODEL (default: gpt-4o)

	// Embedding configuration
	EmbeddingAPIKey  string // ANIMESOMMELIER_EMBEDDING_API_KEY (falls back to LLM key)
	EmbeddingBaseURL string // ANIMESOMMELIER_EMBEDDING_BASE_URL
	EmbeddingModel   string // ANIMESOMMELIER_EMBEDDING_MODEL (default: text-embedding-3-small)

	// Catalog configuration
	JikanBaseURL string // ANIMESOMMELIER_JIKAN_BASE_URL (default: https://api.jikan.moe/v4)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true when an embedding credential is configured.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != "" || p.LLMAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.Secret = os.Getenv("ANIMESOMMELIER_SECRET")
	p.LLMAPIKey = os.Getenv("ANIMESOMMELIER_LLM_API_KEY")
	p.LLMBaseURL = getEnvOrDefault("ANIMESOMMELIER_LLM_BASE_URL", "https://api.openai.com/v1")
	p.LLMModel = getEnvOrDefault("ANIMESOMMELIER_LLM_MODEL", "gpt-4o")
	p.EmbeddingAPIKey = getEnvOrDefault("ANIMESOMMELIER_EMBEDDING_API_KEY", p.LLMAPIKey)
	p.EmbeddingBaseURL = getEnvOrDefault("ANIMESOMMELIER_EMBEDDING_BASE_URL", p.LLMBaseURL)
	p.EmbeddingModel = getEnvOrDefault("ANIMESOMMELIER_EMBEDDING_MODEL", "text-embedding-3-small")
	p.JikanBaseURL = getEnvOrDefault("ANIMESOMMELIER_JIKAN_BASE_URL", "https://api.jikan.moe/v4")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Secret == "" {
		if p.Mode == "prod" {
			return errors.New("ANIMESOMMELIER_SECRET must be set in prod mode")
		}
		p.Secret = "animesommelier-dev-secret"
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		dbFile := fmt.Sprintf("animesommelier_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("a postgres DSN is required when driver is 'postgres'")
	}

	return nil
}
