// Package config loads application configuration from config.yaml and the
// environment, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. All credentials flow
// through here into constructors; no package holds global client state.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Airtable   AirtableConfig   `yaml:"airtable" mapstructure:"airtable"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	SMTP       SMTPConfig       `yaml:"smtp" mapstructure:"smtp"`
	Graph      GraphConfig      `yaml:"graph" mapstructure:"graph"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Dedupe     DedupeConfig     `yaml:"dedupe" mapstructure:"dedupe"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AirtableConfig holds Airtable API credentials and table targets.
type AirtableConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseID  string `yaml:"base_id" mapstructure:"base_id"`
	Table   string `yaml:"table" mapstructure:"table"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// NotionConfig holds the Notion integration token and the template database.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	TemplateDB string `yaml:"template_db" mapstructure:"template_db"`
}

// JinaConfig holds Jina AI Reader/Search settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (scrape fallback only).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds OpenAI API settings for message generation.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings for message generation.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SalesforceConfig holds Salesforce JWT auth settings for lead promotion.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// SMTPConfig configures the SMTP mail sender.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// GraphConfig configures the Microsoft Graph mail sender.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id" mapstructure:"tenant_id"`
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	From         string `yaml:"from" mapstructure:"from"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
}

// OutreachConfig configures campaign scheduling and message generation.
type OutreachConfig struct {
	CampaignDir      string `yaml:"campaign_dir" mapstructure:"campaign_dir"`
	Sender           string `yaml:"sender" mapstructure:"sender"`       // "smtp" or "graph"
	Generator        string `yaml:"generator" mapstructure:"generator"` // "openai" or "anthropic"
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	DailySendCap     int    `yaml:"daily_send_cap" mapstructure:"daily_send_cap"`
}

// ScrapeConfig configures lead discovery and enrichment.
type ScrapeConfig struct {
	MaxResults     int `yaml:"max_results" mapstructure:"max_results"`
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	TimeoutSecs    int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DedupeConfig configures duplicate detection.
type DedupeConfig struct {
	Threshold float64  `yaml:"threshold" mapstructure:"threshold"`
	Fields    []string `yaml:"fields" mapstructure:"fields"`
}

// ServerConfig configures the event webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("airtable.base_url", "https://api.airtable.com/v0")
	v.SetDefault("airtable.table", "Leads")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("outreach.campaign_dir", "campaigns")
	v.SetDefault("outreach.sender", "smtp")
	v.SetDefault("outreach.generator", "openai")
	v.SetDefault("outreach.poll_interval_secs", 300)
	v.SetDefault("outreach.daily_send_cap", 100)
	v.SetDefault("scrape.max_results", 20)
	v.SetDefault("scrape.max_concurrency", 5)
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("dedupe.threshold", 0.85)
	v.SetDefault("dedupe.fields", []string{"email", "linkedin_url", "website", "company", "name"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the named sections carry the credentials they need.
func (c *Config) Validate(sections ...string) error {
	for _, section := range sections {
		switch section {
		case "airtable":
			if c.Airtable.Token == "" || c.Airtable.BaseID == "" {
				return eris.New("config: airtable.token and airtable.base_id are required")
			}
		case "notion":
			if c.Notion.Token == "" || c.Notion.TemplateDB == "" {
				return eris.New("config: notion.token and notion.template_db are required")
			}
		case "jina":
			if c.Jina.Key == "" {
				return eris.New("config: jina.key is required")
			}
		case "openai":
			if c.OpenAI.Key == "" {
				return eris.New("config: openai.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				return eris.New("config: anthropic.key is required")
			}
		case "salesforce":
			if c.Salesforce.ClientID == "" || c.Salesforce.Username == "" {
				return eris.New("config: salesforce.client_id and salesforce.username are required")
			}
		case "smtp":
			if c.SMTP.Host == "" || c.SMTP.From == "" {
				return eris.New("config: smtp.host and smtp.from are required")
			}
		case "graph":
			if c.Graph.TenantID == "" || c.Graph.ClientID == "" || c.Graph.ClientSecret == "" {
				return eris.New("config: graph.tenant_id, graph.client_id, and graph.client_secret are required")
			}
		default:
			return eris.Errorf("config: unknown section %q", section)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
