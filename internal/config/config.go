package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures storage, AI providers, image pipeline, pacing and triggers.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Images     ImagesConfig     `yaml:"images"`
	Generation GenerationConfig `yaml:"generation"`
	Engagement EngagementConfig `yaml:"engagement"`
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Notify     NotifyConfig     `yaml:"notify"`
}

type DatabaseConfig struct {
	// "sqlite" or "postgres"
	Driver string `yaml:"driver"`
	// File path for sqlite, connection URL for postgres. If empty, read DATABASE_URL;
	// sqlite then falls back to ./ambitious.db
	DSN string `yaml:"dsn"`
}

// ProviderConfig configures one text generation backend.
type ProviderConfig struct {
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type ProvidersConfig struct {
	OpenAI ProviderConfig `yaml:"openai"`
	Claude ProviderConfig `yaml:"claude"`
	XAI    ProviderConfig `yaml:"xai"`
	// Request pacing shared by every provider client
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
}

type ImagesConfig struct {
	// Gemini image model; if APIKey empty, read GEMINI_API_KEY
	GeminiAPIKey string        `yaml:"geminiApiKey"`
	Model        string        `yaml:"model"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	// Cloudflare R2 (S3 compatible). If empty, read R2_* env vars
	R2AccountID string `yaml:"r2AccountId"`
	R2AccessKey string `yaml:"r2AccessKey"`
	R2SecretKey string `yaml:"r2SecretKey"`
	R2Bucket    string `yaml:"r2Bucket"`
	R2PublicURL string `yaml:"r2PublicURL"`
	// Local fallback storage
	LocalDir     string `yaml:"localDir"`
	LocalBaseURL string `yaml:"localBaseURL"`
}

type GenerationConfig struct {
	// Recent posts fed back as negative examples
	HistoryLimit  int           `yaml:"historyLimit"`
	ProviderDelay time.Duration `yaml:"providerDelay"`
	NPCDelay      time.Duration `yaml:"npcDelay"`
}

type EngagementConfig struct {
	CommentDelay time.Duration `yaml:"commentDelay"`
	NPCDelay     time.Duration `yaml:"npcDelay"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// HS256 secret for admin bearer tokens. If empty, read ADMIN_JWT_SECRET; empty disables auth
	JWTSecret   string   `yaml:"jwtSecret"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type JobsConfig struct {
	EngageCron   string `yaml:"engageCron"`
	RefillCron   string `yaml:"refillCron"`
	PublishCron  string `yaml:"publishCron"`
	MinQueueSize int    `yaml:"minQueueSize"`
	PublishBatch int    `yaml:"publishBatch"`
	// Posts per NPC for manual batches; 0 sizes from each NPC's schedule
	PostsPerNPC int `yaml:"postsPerNPC"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"telegramToken"`
	TelegramChatID int64  `yaml:"telegramChatId"`
}

const defaultSQLitePath = "./ambitious.db"

// Default returns a sensible default configuration. The database DSN is left empty for ResolveEnv.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Providers: ProvidersConfig{
			OpenAI:      ProviderConfig{Model: "gpt-4o-mini", BaseURL: "https://api.openai.com/v1", Timeout: 60 * time.Second},
			Claude:      ProviderConfig{Model: "claude-haiku-4-5-20251001", BaseURL: "https://api.anthropic.com/v1", Timeout: 60 * time.Second},
			XAI:         ProviderConfig{Model: "grok-3-mini", BaseURL: "https://api.x.ai/v1", Timeout: 60 * time.Second},
			RPS:         2,
			Burst:       5,
			MaxAttempts: 3,
			BaseBackoff: 500 * time.Millisecond,
		},
		Images: ImagesConfig{
			Model:        "gemini-2.5-flash-image",
			FetchTimeout: 20 * time.Second,
			LocalDir:     "./uploads/npc-images",
			LocalBaseURL: "http://localhost:8080/uploads/npc-images",
		},
		Generation: GenerationConfig{HistoryLimit: 15, ProviderDelay: time.Second, NPCDelay: 2 * time.Second},
		Engagement: EngagementConfig{CommentDelay: 2 * time.Second, NPCDelay: time.Second},
		Server:     ServerConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
		Jobs: JobsConfig{
			EngageCron:   "*/30 * * * *",
			RefillCron:   "0 * * * *",
			PublishCron:  "* * * * *",
			MinQueueSize: 3,
			PublishBatch: 50,
			PostsPerNPC:  3,
		},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	setIfEmpty(&c.Database.DSN, "DATABASE_URL")
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = defaultSQLitePath
	}
	setIfEmpty(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&c.Providers.Claude.APIKey, "ANTHROPIC_API_KEY")
	setIfEmpty(&c.Providers.XAI.APIKey, "XAI_API_KEY")
	setIfEmpty(&c.Images.GeminiAPIKey, "GEMINI_API_KEY")
	setIfEmpty(&c.Images.R2AccountID, "R2_ACCOUNT_ID")
	setIfEmpty(&c.Images.R2AccessKey, "R2_ACCESS_KEY")
	setIfEmpty(&c.Images.R2SecretKey, "R2_SECRET_KEY")
	setIfEmpty(&c.Images.R2Bucket, "R2_BUCKET")
	setIfEmpty(&c.Images.R2PublicURL, "R2_PUBLIC_URL")
	setIfEmpty(&c.Server.JWTSecret, "ADMIN_JWT_SECRET")
	setIfEmpty(&c.Metrics.Addr, "METRICS_ADDR")
	setIfEmpty(&c.Notify.TelegramToken, "TELEGRAM_BOT_TOKEN")
	if c.Notify.TelegramChatID == 0 {
		var id int64
		if _, err := fmt.Sscanf(os.Getenv("TELEGRAM_CHAT_ID"), "%d", &id); err == nil {
			c.Notify.TelegramChatID = id
		}
	}
}

func setIfEmpty(dst *string, env string) {
	if *dst == "" {
		*dst = os.Getenv(env)
	}
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, expr := range map[string]string{
		"engageCron":  c.Jobs.EngageCron,
		"refillCron":  c.Jobs.RefillCron,
		"publishCron": c.Jobs.PublishCron,
	} {
		if expr == "" {
			continue
		}
		if _, err := parser.Parse(expr); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Load reads YAML config from path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, cfg.Validate()
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
