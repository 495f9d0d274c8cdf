package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Clone modes
const (
	CloneModeDisk   = "disk"
	CloneModeMemory = "memory"
)

// LLM providers
const (
	ProviderNone        = ""
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
)

// Config holds the application configuration
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	GitHubToken    string        `yaml:"github_token"`
	GitHubAPIURL   string        `yaml:"github_api_url"`
	WorkDir        string        `yaml:"work_dir"`
	CloneMode      string        `yaml:"clone_mode"`
	CloneTimeout   time.Duration `yaml:"clone_timeout"`
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
	LogLevel       string        `yaml:"log_level"`

	// LLM summary configuration
	LLMProvider  string        `yaml:"llm_provider"`
	LLMTimeout   time.Duration `yaml:"llm_timeout"`
	HFToken      string        `yaml:"hf_token"`
	HFModel      string        `yaml:"hf_model"`
	HFAPIURL     string        `yaml:"hf_api_url"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`

	// NATS fan-out configuration, disabled when NATSUrl is empty
	NATSUrl        string `yaml:"nats_url"`
	RequestSubject string `yaml:"request_subject"`
	ReportSubject  string `yaml:"report_subject"`

	// Scheduler specific configuration
	CronSchedule string   `yaml:"cron_schedule"`
	WatchRepos   []string `yaml:"watch_repos"`
	RunOnStartup bool     `yaml:"run_on_startup"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from an optional YAML file, then applies
// environment variables on top of it. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.GitHubToken, "GITHUB_TOKEN")
	setString(&c.GitHubAPIURL, "GITHUB_API_URL")
	setString(&c.WorkDir, "WORK_DIR")
	setString(&c.CloneMode, "CLONE_MODE")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LLMProvider, "LLM_PROVIDER")
	setString(&c.HFToken, "HF_TOKEN")
	setString(&c.HFModel, "HF_MODEL")
	setString(&c.HFAPIURL, "HF_API_URL")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.NATSUrl, "NATS_URL")
	setString(&c.RequestSubject, "REQUEST_SUBJECT")
	setString(&c.ReportSubject, "REPORT_SUBJECT")
	setString(&c.CronSchedule, "CRON_SCHEDULE")

	if v := os.Getenv("WATCH_REPOS"); v != "" {
		c.WatchRepos = splitList(v)
	}

	// Check if we should run on startup
	switch os.Getenv("RUN_ON_STARTUP") {
	case "true":
		c.RunOnStartup = true
	case "false":
		c.RunOnStartup = false
	}

	for env, dst := range map[string]*time.Duration{
		"CLONE_TIMEOUT":   &c.CloneTimeout,
		"ANALYZE_TIMEOUT": &c.AnalyzeTimeout,
		"LLM_TIMEOUT":     &c.LLMTimeout,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", env, v, err)
		}
		*dst = d
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "repolens")
	}
	if c.CloneMode == "" {
		c.CloneMode = CloneModeDisk
	}
	if c.CloneTimeout == 0 {
		c.CloneTimeout = 2 * time.Minute
	}
	if c.AnalyzeTimeout == 0 {
		c.AnalyzeTimeout = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LLMProvider == "none" {
		c.LLMProvider = ProviderNone
	}
	if c.LLMTimeout == 0 {
		c.LLMTimeout = 30 * time.Second
	}
	if c.HFModel == "" {
		c.HFModel = "mistralai/Mistral-7B-Instruct"
	}
	if c.HFAPIURL == "" {
		c.HFAPIURL = "https://api-inference.huggingface.co"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash"
	}
	if c.RequestSubject == "" {
		c.RequestSubject = "repolens.requests"
	}
	if c.ReportSubject == "" {
		c.ReportSubject = "repolens.reports"
	}
	if c.CronSchedule == "" {
		c.CronSchedule = "0 0 * * 0" // Weekly on Sunday at midnight
	}
}

// Validate checks the fields shared by every binary
func (c *Config) Validate() error {
	switch c.CloneMode {
	case CloneModeDisk, CloneModeMemory:
	default:
		return fmt.Errorf("CLONE_MODE must be %q or %q, got %q", CloneModeDisk, CloneModeMemory, c.CloneMode)
	}

	switch c.LLMProvider {
	case ProviderNone:
	case ProviderHuggingFace:
		if c.HFToken == "" {
			return fmt.Errorf("HF_TOKEN environment variable is required for LLM_PROVIDER=%s", c.LLMProvider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable is required for LLM_PROVIDER=%s", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	return nil
}

// RequireNATS reports an error when the NATS fan-out is not configured
func (c *Config) RequireNATS() error {
	if c.NATSUrl == "" {
		return fmt.Errorf("NATS_URL environment variable is required")
	}
	return nil
}

// RequireWatchList reports an error when there is nothing to schedule
func (c *Config) RequireWatchList() error {
	if len(c.WatchRepos) == 0 {
		return fmt.Errorf("WATCH_REPOS environment variable is required")
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
