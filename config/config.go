package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the knowledge base pipeline.
type Config struct {
	Store      StoreConfig      `yaml:"store"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Data       DataConfig       `yaml:"data"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StoreConfig holds vector store connection settings.
type StoreConfig struct {
	URL        string `yaml:"url"`         // Qdrant REST endpoint
	APIKeyEnv  string `yaml:"api_key_env"` // Environment variable for API key (optional)
	Collection string `yaml:"collection"`
	Distance   string `yaml:"distance"` // "Cosine", "Dot", "Euclid"
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "ollama", "openai", "mock"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// ChunkingConfig holds text splitting parameters, in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrieveConfig holds query-time settings.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
}

// IngestConfig holds ingestion run settings.
type IngestConfig struct {
	Workers       int `yaml:"workers"`
	RetryAttempts int `yaml:"retry_attempts"` // Max retries for embed/upsert calls
}

// DataConfig holds input directories and tracker state location.
type DataConfig struct {
	TextDir     string `yaml:"text_dir"`
	PDFDir      string `yaml:"pdf_dir"`
	TrackerPath string `yaml:"tracker_path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			URL:        "http://localhost:6333",
			APIKeyEnv:  "QDRANT_API_KEY",
			Collection: "knowledge_base",
			Distance:   "Cosine",
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BaseURL:   "http://localhost:11434/v1",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 768,
			BatchSize: 64,
		},
		Generation: GenerationConfig{
			Model:   "qwen3:8b",
			BaseURL: "http://localhost:11434/v1",
		},
		Chunking: ChunkingConfig{
			ChunkSize:    500,
			ChunkOverlap: 50,
		},
		Retrieve: RetrieveConfig{
			TopK:     3,
			MinScore: 0,
		},
		Ingest: IngestConfig{
			Workers:       4,
			RetryAttempts: 3,
		},
		Data: DataConfig{
			TextDir:     filepath.Join("data", "texts"),
			PDFDir:      filepath.Join("data", "pdfs"),
			TrackerPath: filepath.Join("data", "ingested.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for kbase.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "kbase.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".kbase", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
