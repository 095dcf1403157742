// Package config loads agentflow configuration from YAML files and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. AGENTFLOW_LLM_MODEL.
const EnvPrefix = "AGENTFLOW"

// Config holds all agentflow configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Agent     AgentConfig     `yaml:"agent" mapstructure:"agent"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Weather   WeatherConfig   `yaml:"weather" mapstructure:"weather"`
	Knowledge KnowledgeConfig `yaml:"knowledge" mapstructure:"knowledge"`
	Prompts   PromptsConfig   `yaml:"prompts" mapstructure:"prompts"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-" mapstructure:"-"`
}

type LLMConfig struct {
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	APIKey         string   `yaml:"api_key" mapstructure:"api_key"`
	Model          string   `yaml:"model" mapstructure:"model"`
	TimeoutSeconds int      `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries     int      `yaml:"max_retries" mapstructure:"max_retries"`
	Temperature    *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
}

type AgentConfig struct {
	MaxCycles          int    `yaml:"max_cycles" mapstructure:"max_cycles"`
	ToolTimeoutSeconds int    `yaml:"tool_timeout" mapstructure:"tool_timeout"`
	SystemPrompt       string `yaml:"system_prompt" mapstructure:"system_prompt"`
	Workspace          string `yaml:"workspace" mapstructure:"workspace"`
}

type WorkflowConfig struct {
	ConfidenceThreshold float64    `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	Signer              string     `yaml:"signer" mapstructure:"signer"`
	Blog                BlogConfig `yaml:"blog" mapstructure:"blog"`
}

type BlogConfig struct {
	TargetLength int    `yaml:"target_length" mapstructure:"target_length"`
	Style        string `yaml:"style" mapstructure:"style"`
}

type ResearchConfig struct {
	Tavily    TavilyConfig    `yaml:"tavily" mapstructure:"tavily"`
	Arxiv     ArxivConfig     `yaml:"arxiv" mapstructure:"arxiv"`
	Wikipedia WikipediaConfig `yaml:"wikipedia" mapstructure:"wikipedia"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
}

type TavilyConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

type ArxivConfig struct {
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	MaxPages       int    `yaml:"max_pages" mapstructure:"max_pages"`
	TextChars      int    `yaml:"text_chars" mapstructure:"text_chars"`
	PDFDelayMillis int    `yaml:"pdf_delay_ms" mapstructure:"pdf_delay_ms"`
}

type WikipediaConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

// HTTPConfig is the retry policy of the tool-layer HTTP client.
type HTTPConfig struct {
	Retries        int    `yaml:"retries" mapstructure:"retries"`
	BackoffMillis  int    `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	RetryStatuses  []int  `yaml:"retry_statuses" mapstructure:"retry_statuses"`
	UserAgent      string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout" mapstructure:"timeout"`
}

type WeatherConfig struct {
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
}

type KnowledgeConfig struct {
	// Path of a JSON knowledge base. Empty uses the built-in store FAQ.
	Path string `yaml:"path" mapstructure:"path"`
}

type PromptsConfig struct {
	// Path of a YAML file overriding prompt templates.
	Path string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	// File receives logs in addition to stderr when set.
	File string `yaml:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-5-nano",
			TimeoutSeconds: 60,
			MaxRetries:     0,
		},
		Agent: AgentConfig{
			MaxCycles:          10,
			ToolTimeoutSeconds: 60,
			Workspace:          ".",
		},
		Workflow: WorkflowConfig{
			ConfidenceThreshold: 0.7,
			Signer:              "Koochi",
			Blog: BlogConfig{
				TargetLength: 1000,
				Style:        "informative",
			},
		},
		Research: ResearchConfig{
			Tavily: TavilyConfig{BaseURL: "https://api.tavily.com"},
			Arxiv: ArxivConfig{
				Endpoint:       "https://export.arxiv.org/api/query",
				MaxPages:       6,
				TextChars:      5000,
				PDFDelayMillis: 1000,
			},
			Wikipedia: WikipediaConfig{Endpoint: "https://en.wikipedia.org/w/api.php"},
			HTTP: HTTPConfig{
				Retries:        5,
				BackoffMillis:  600,
				RetryStatuses:  []int{429, 500, 502, 503, 504},
				UserAgent:      "agentflow/1.0",
				TimeoutSeconds: 60,
			},
		},
		Weather: WeatherConfig{Endpoint: "https://api.open-meteo.com/v1/forecast"},
	}
}

// Dir returns the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".agentflow"), nil
}

// SearchPaths returns the config files tried by LoadFromPaths when no
// explicit file is given, in order of precedence.
func SearchPaths() []string {
	paths := []string{"agentflow.local.yaml", "agentflow.yaml"}
	if dir, err := Dir(); err == nil {
		paths = append(paths, filepath.Join(dir, "config.yaml"))
	}
	return paths
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Optional keys are absent from the defaults and must be bound by hand.
	_ = v.BindEnv("llm.temperature")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Source = path

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Research.Tavily.APIKey == "" {
		cfg.Research.Tavily.APIKey = os.Getenv("TAVILY_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPaths loads the first existing file of paths, or the defaults when
// none exists.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return Load("")
}

// LoadEnvFiles loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are skipped and existing variables are
// not overwritten.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	var errs []error
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.TimeoutSeconds < 0 || c.Agent.ToolTimeoutSeconds < 0 || c.Research.HTTP.TimeoutSeconds < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, errors.New("llm.max_retries must not be negative"))
	}
	if c.Agent.MaxCycles < 0 {
		errs = append(errs, fmt.Errorf("agent.max_cycles must not be negative, got %d", c.Agent.MaxCycles))
	}
	if t := c.Workflow.ConfidenceThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("workflow.confidence_threshold must be in (0,1], got %v", t))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the configuration to path as YAML, creating parent
// directories. The file may hold API keys and is written owner-only.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Masked returns a copy with API keys shortened for display.
func (c *Config) Masked() *Config {
	out := *c
	out.LLM.APIKey = maskKey(c.LLM.APIKey)
	out.Research.Tavily.APIKey = maskKey(c.Research.Tavily.APIKey)
	return &out
}

func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

// LLMTimeout returns the per-call gateway timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ToolTimeout returns the per-call tool timeout.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Agent.ToolTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the per-request timeout of the tool HTTP client.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Research.HTTP.TimeoutSeconds) * time.Second
}

// HTTPBackoff returns the fixed retry interval of the tool HTTP client.
func (c *Config) HTTPBackoff() time.Duration {
	return time.Duration(c.Research.HTTP.BackoffMillis) * time.Millisecond
}

// PDFDelay returns the pause after each arXiv PDF download.
func (c *Config) PDFDelay() time.Duration {
	return time.Duration(c.Research.Arxiv.PDFDelayMillis) * time.Millisecond
}
