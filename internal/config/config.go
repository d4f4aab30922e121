package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thomaskoefod/digestr/pkg/models"
)

// DefaultProfileContext anchors every user profile in the DevOps/backend domain.
// %s receives the user's keywords joined with ", ".
const DefaultProfileContext = `The user is a software engineer interested in:
%s.

Topics include:
containerization, Dockerfiles, images,
Kubernetes, DevOps pipelines,
microservices, backend architecture,
deployment, CI/CD systems.`

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Feeds    []FeedConfig   `yaml:"feeds"`
	AI       AIConfig       `yaml:"ai"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Schedule ScheduleConfig `yaml:"schedule"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type FeedConfig struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type AIConfig struct {
	Provider      string        `yaml:"provider"` // ollama or gemini
	Ollama        OllamaConfig  `yaml:"ollama"`
	Gemini        GeminiConfig  `yaml:"gemini"`
	MaxInputChars int           `yaml:"max_input_chars"`
	Timeout       time.Duration `yaml:"timeout"`
}

type OllamaConfig struct {
	Host           string `yaml:"host"`
	EmbeddingModel string `yaml:"embedding_model"`
	SummaryModel   string `yaml:"summary_model"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	EmbeddingModel string `yaml:"embedding_model"`
	SummaryModel   string `yaml:"summary_model"`
}

type RankingConfig struct {
	Threshold        float64 `yaml:"threshold"`
	SimilarityWeight float64 `yaml:"similarity_weight"`
	FreshnessWeight  float64 `yaml:"freshness_weight"`
	ProfileContext   string  `yaml:"profile_context"`
}

// FrequencyConfig is the recency window and cap for one digest tier.
type FrequencyConfig struct {
	DaysBack   int `yaml:"days_back"`
	MaxResults int `yaml:"max_results"`
}

type ScheduleConfig struct {
	IngestInterval time.Duration                        `yaml:"ingest_interval"`
	CheckInterval  time.Duration                        `yaml:"check_interval"`
	DigestHour     int                                  `yaml:"digest_hour"`
	DigestMinute   int                                  `yaml:"digest_minute"`
	Timezone       string                               `yaml:"timezone"`
	Frequencies    map[models.Frequency]FrequencyConfig `yaml:"frequencies"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"-"`
	From     string `yaml:"from"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns a complete configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultFrequencies is the (days back, max results) table per digest tier.
func DefaultFrequencies() map[models.Frequency]FrequencyConfig {
	return map[models.Frequency]FrequencyConfig{
		models.Daily:   {DaysBack: 1, MaxResults: 2},
		models.Weekly:  {DaysBack: 7, MaxResults: 6},
		models.Monthly: {DaysBack: 30, MaxResults: 10},
	}
}

// Load reads configuration from file. A missing file yields the defaults so the
// service can run from environment variables alone.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Database.Path != "" {
		cfg.Database.Path = expandPath(cfg.Database.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DIGESTR_DB_DSN"); v != "" {
		c.Database.DSN = v
		if c.Database.Driver == "" {
			c.Database.Driver = "postgres"
		}
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.AI.Ollama.Host = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.Gemini.APIKey = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "~/.local/share/digestr/digestr.db"
	}
	if len(c.Feeds) == 0 {
		c.Feeds = []FeedConfig{
			{URL: "https://dev.to/feed", Name: "DEV Community"},
			{URL: "https://hnrss.org/frontpage", Name: "Hacker News"},
		}
	}

	if c.AI.Provider == "" {
		c.AI.Provider = "ollama"
	}
	if c.AI.Ollama.Host == "" {
		c.AI.Ollama.Host = "http://localhost:11434"
	}
	if c.AI.Ollama.EmbeddingModel == "" {
		c.AI.Ollama.EmbeddingModel = "mxbai-embed-large:latest"
	}
	if c.AI.Ollama.SummaryModel == "" {
		c.AI.Ollama.SummaryModel = "llama3"
	}
	if c.AI.Gemini.EmbeddingModel == "" {
		c.AI.Gemini.EmbeddingModel = "text-embedding-004"
	}
	if c.AI.Gemini.SummaryModel == "" {
		c.AI.Gemini.SummaryModel = "gemini-1.5-flash"
	}
	if c.AI.MaxInputChars == 0 {
		c.AI.MaxInputChars = 1500
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 120 * time.Second
	}

	if c.Ranking.Threshold == 0 {
		c.Ranking.Threshold = 0.65
	}
	if c.Ranking.SimilarityWeight == 0 && c.Ranking.FreshnessWeight == 0 {
		c.Ranking.SimilarityWeight = 0.8
		c.Ranking.FreshnessWeight = 0.2
	}
	if c.Ranking.ProfileContext == "" {
		c.Ranking.ProfileContext = DefaultProfileContext
	}

	if c.Schedule.IngestInterval == 0 {
		c.Schedule.IngestInterval = 30 * time.Minute
	}
	if c.Schedule.CheckInterval == 0 {
		c.Schedule.CheckInterval = time.Minute
	}
	if c.Schedule.DigestHour == 0 && c.Schedule.DigestMinute == 0 {
		c.Schedule.DigestHour = 9
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "UTC"
	}
	if c.Schedule.Frequencies == nil {
		c.Schedule.Frequencies = DefaultFrequencies()
	} else {
		for f, fc := range DefaultFrequencies() {
			if _, ok := c.Schedule.Frequencies[f]; !ok {
				c.Schedule.Frequencies[f] = fc
			}
		}
	}

	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.AI.Provider {
	case "ollama":
	case "gemini":
		if c.AI.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	if c.AI.MaxInputChars < 0 {
		return fmt.Errorf("ai.max_input_chars must not be negative")
	}

	if c.Ranking.SimilarityWeight < 0 || c.Ranking.FreshnessWeight < 0 {
		return fmt.Errorf("ranking weights must not be negative")
	}
	if c.Ranking.Threshold < -1 || c.Ranking.Threshold > 1 {
		return fmt.Errorf("ranking.threshold must be within [-1, 1]")
	}
	if !strings.Contains(c.Ranking.ProfileContext, "%s") {
		return fmt.Errorf("ranking.profile_context must contain a %%s placeholder for keywords")
	}

	for f, fc := range c.Schedule.Frequencies {
		if _, err := models.ParseFrequency(string(f)); err != nil {
			return fmt.Errorf("schedule.frequencies: %w", err)
		}
		if fc.DaysBack <= 0 || fc.MaxResults <= 0 {
			return fmt.Errorf("schedule.frequencies.%s: days_back and max_results must be positive", f)
		}
	}
	if c.Schedule.DigestHour < 0 || c.Schedule.DigestHour > 23 || c.Schedule.DigestMinute < 0 || c.Schedule.DigestMinute > 59 {
		return fmt.Errorf("schedule digest time %02d:%02d is invalid", c.Schedule.DigestHour, c.Schedule.DigestMinute)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// FeedURLs returns the configured feed URLs in order.
func (c *Config) FeedURLs() []string {
	urls := make([]string, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		urls = append(urls, f.URL)
	}
	return urls
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "digestr", "config.yaml")
}
