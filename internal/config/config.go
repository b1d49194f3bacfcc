// Package config loads the service configuration: a JSON file merged over
// defaults, then overridden by environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/resume-analyzer/internal/llm"
)

// Config is the full service configuration. It is built once at startup and
// passed to the components that need it.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	LLM      LLMConfig      `json:"llm"`
	OCR      OCRConfig      `json:"ocr"`
	JobFetch JobFetchConfig `json:"job_fetch"`
	Redis    RedisConfig    `json:"redis"`
	Queue    QueueConfig    `json:"queue"`
	Storage  StorageConfig  `json:"storage"`
	Email    EmailConfig    `json:"email"`
	LogMode  string         `json:"log_mode,omitempty"` // "production" or "development"

	// AdminToken guards maintenance endpoints. Only read from the environment.
	AdminToken string `json:"-"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int `json:"port,omitempty"`
	MaxUploadMB        int `json:"max_upload_mb,omitempty"`
	AnalyzeRatePerHour int `json:"analyze_rate_per_hour,omitempty"`
}

// DatabaseConfig configures PostgreSQL.
type DatabaseConfig struct {
	URL string `json:"url,omitempty"`
}

// LLMConfig configures the language model client.
type LLMConfig struct {
	Provider       string            `json:"provider,omitempty"` // "gemini" or "genai"
	APIKey         string            `json:"api_key,omitempty"`
	Models         map[string]string `json:"models,omitempty"` // tier → model name
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	MaxRetries     int               `json:"max_retries,omitempty"`
}

// OCRConfig configures scanned-PDF text recognition.
type OCRConfig struct {
	Engine        string `json:"engine,omitempty"` // "tesseract" or "vision"
	Languages     string `json:"languages,omitempty"`
	MinTextLength int    `json:"min_text_length,omitempty"`
	RenderDPI     int    `json:"render_dpi,omitempty"`
}

// JobFetchConfig configures job description downloads.
type JobFetchConfig struct {
	UseBrowser     bool   `json:"use_browser,omitempty"`
	ReaderProxy    string `json:"reader_proxy,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// RedisConfig configures the verification code store.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"-"`
	DB       int    `json:"db,omitempty"`
}

// QueueConfig configures asynchronous analysis over RabbitMQ.
type QueueConfig struct {
	URL            string `json:"url,omitempty"`
	JobQueue       string `json:"job_queue,omitempty"`
	StatusExchange string `json:"status_exchange,omitempty"`
	Workers        int    `json:"workers,omitempty"`
}

// StorageConfig configures where uploads are kept. When Bucket is empty
// uploads go to LocalDir.
type StorageConfig struct {
	Bucket          string `json:"bucket,omitempty"`
	Endpoint        string `json:"endpoint,omitempty"`
	Region          string `json:"region,omitempty"`
	AccessKeyID     string `json:"-"`
	SecretAccessKey string `json:"-"`
	LocalDir        string `json:"local_dir,omitempty"`
}

// SMTPConfig is one SMTP relay. Relays without a password are skipped.
type SMTPConfig struct {
	Name     string `json:"name,omitempty"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// EmailConfig configures outgoing mail.
type EmailConfig struct {
	From           string       `json:"from,omitempty"`
	FeedbackTo     string       `json:"feedback_to,omitempty"`
	BackupPath     string       `json:"backup_path,omitempty"`
	SMTP           []SMTPConfig `json:"smtp,omitempty"`
	SendGridAPIKey string       `json:"-"`
	BaseURL        string       `json:"base_url,omitempty"` // used in verification links
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			MaxUploadMB:        10,
			AnalyzeRatePerHour: 30,
		},
		LLM: LLMConfig{
			Provider:       string(llm.ProviderGemini),
			TimeoutSeconds: int(llm.DefaultTimeout / time.Second),
			MaxRetries:     llm.DefaultMaxRetries,
		},
		OCR: OCRConfig{
			Engine:        "tesseract",
			Languages:     "eng+chi_sim",
			MinTextLength: 100,
			RenderDPI:     144,
		},
		JobFetch: JobFetchConfig{
			ReaderProxy:    "https://r.jina.ai/",
			TimeoutSeconds: 30,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Queue: QueueConfig{
			JobQueue:       "resume_analysis_jobs",
			StatusExchange: "resume_analysis_status",
			Workers:        4,
		},
		Storage: StorageConfig{
			Region:   "auto",
			LocalDir: "uploads",
		},
		Email: EmailConfig{
			From:       "noreply@resume-analyzer.local",
			BackupPath: "data/email_backup.json",
			BaseURL:    "http://localhost:8080",
		},
		LogMode: "production",
	}
}

// Load reads a JSON config file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides values from environment variables read through getenv
// (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
			return
		}
		*dst = n
	}

	num("PORT", &c.Server.Port)
	str("DATABASE_URL", &c.Database.URL)
	str("GEMINI_API_KEY", &c.LLM.APIKey)
	str("LLM_PROVIDER", &c.LLM.Provider)
	str("OCR_ENGINE", &c.OCR.Engine)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("RABBITMQ_URL", &c.Queue.URL)
	num("WORKER_COUNT", &c.Queue.Workers)
	str("S3_BUCKET", &c.Storage.Bucket)
	str("S3_ENDPOINT", &c.Storage.Endpoint)
	str("S3_REGION", &c.Storage.Region)
	str("S3_ACCESS_KEY_ID", &c.Storage.AccessKeyID)
	str("S3_SECRET_ACCESS_KEY", &c.Storage.SecretAccessKey)
	str("UPLOAD_DIR", &c.Storage.LocalDir)
	str("EMAIL_FROM", &c.Email.From)
	str("FEEDBACK_EMAIL", &c.Email.FeedbackTo)
	str("EMAIL_BACKUP_PATH", &c.Email.BackupPath)
	str("SENDGRID_API_KEY", &c.Email.SendGridAPIKey)
	str("PUBLIC_BASE_URL", &c.Email.BaseURL)
	str("ADMIN_TOKEN", &c.AdminToken)
	str("LOG_MODE", &c.LogMode)

	// A single relay can be configured entirely from the environment.
	if host := strings.TrimSpace(getenv("SMTP_HOST")); host != "" {
		relay := SMTPConfig{Name: "env", Host: host, Port: 587}
		num("SMTP_PORT", &relay.Port)
		str("SMTP_USERNAME", &relay.Username)
		str("SMTP_PASSWORD", &relay.Password)
		c.Email.SMTP = append([]SMTPConfig{relay}, c.Email.SMTP...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config error: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("config error: 'server.max_upload_mb' must be at least 1")
	}
	switch llm.Provider(c.LLM.Provider) {
	case llm.ProviderGemini, llm.ProviderGenAI:
	default:
		return fmt.Errorf("config error: unknown llm provider %q", c.LLM.Provider)
	}
	for tier := range c.LLM.Models {
		switch llm.ModelTier(tier) {
		case llm.TierLite, llm.TierStandard, llm.TierAdvanced:
		default:
			return fmt.Errorf("config error: unknown model tier %q", tier)
		}
	}
	if c.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("config error: 'llm.timeout_seconds' must be at least 1")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("config error: 'llm.max_retries' must be non-negative")
	}
	if c.OCR.Engine != "tesseract" && c.OCR.Engine != "vision" {
		return fmt.Errorf("config error: unknown ocr engine %q", c.OCR.Engine)
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("config error: 'queue.workers' must be at least 1")
	}
	for _, relay := range c.Email.SMTP {
		if relay.Host == "" || relay.Port <= 0 {
			return fmt.Errorf("config error: smtp relay %q needs host and port", relay.Name)
		}
	}
	return nil
}

// ModelConfig converts the LLM section into the client configuration.
func (c LLMConfig) ModelConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	cfg.Provider = llm.Provider(c.Provider)
	for tier, model := range c.Models {
		cfg.Models[llm.ModelTier(tier)] = model
	}
	if c.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	cfg.MaxRetries = c.MaxRetries
	return cfg
}
