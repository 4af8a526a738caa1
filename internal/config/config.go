package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadflow-cli/internal/ratelimit"
)

// Config holds the full application configuration.
type Config struct {
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Webcheck      WebcheckConfig      `yaml:"webcheck" mapstructure:"webcheck"`
	Tagdetect     TagdetectConfig     `yaml:"tagdetect" mapstructure:"tagdetect"`
	PageSpeed     PageSpeedConfig     `yaml:"pagespeed" mapstructure:"pagespeed"`
	DataForSEO    DataForSEOConfig    `yaml:"dataforseo" mapstructure:"dataforseo"`
	AnyMailFinder AnyMailFinderConfig `yaml:"anymailfinder" mapstructure:"anymailfinder"`
	Outscraper    OutscraperConfig    `yaml:"outscraper" mapstructure:"outscraper"`
	History       HistoryConfig       `yaml:"history" mapstructure:"history"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// PipelineConfig holds the shared worker-pool defaults. Per-command flags
// override these at dispatch time.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// WebcheckConfig configures the website reachability checker.
type WebcheckConfig struct {
	UserAgent  string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// TagdetectConfig configures the GTM/Ads tag detection fetch.
type TagdetectConfig struct {
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
	// InsecureFallback permits one plain-HTTP retry after a certificate
	// failure instead of declaring the record terminal.
	InsecureFallback bool `yaml:"insecure_fallback" mapstructure:"insecure_fallback"`
}

// PageSpeedConfig holds PageSpeed Insights API settings.
type PageSpeedConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Strategy       string  `yaml:"strategy" mapstructure:"strategy"`
	WindowLimit    int     `yaml:"window_limit" mapstructure:"window_limit"`
	WindowSecs     int     `yaml:"window_secs" mapstructure:"window_secs"`
	WindowHeadroom int     `yaml:"window_headroom" mapstructure:"window_headroom"`
	SafeRate       float64 `yaml:"safe_rate" mapstructure:"safe_rate"`
	DailyQuota     int     `yaml:"daily_quota" mapstructure:"daily_quota"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateResetSecs  int     `yaml:"rate_reset_secs" mapstructure:"rate_reset_secs"`
}

// DataForSEOConfig holds DataForSEO API settings.
type DataForSEOConfig struct {
	Login       string  `yaml:"login" mapstructure:"login"`
	Password    string  `yaml:"password" mapstructure:"password"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	CostPerTask float64 `yaml:"cost_per_task" mapstructure:"cost_per_task"`
	Location    string  `yaml:"location" mapstructure:"location"`
	Language    string  `yaml:"language" mapstructure:"language"`
	PollMaxSecs int     `yaml:"poll_max_secs" mapstructure:"poll_max_secs"`
}

// AnyMailFinderConfig holds AnyMailFinder API settings.
type AnyMailFinderConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OutscraperConfig holds Outscraper API settings.
type OutscraperConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HistoryConfig configures the local run-history database.
type HistoryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("pipeline.concurrency", 10)
	v.SetDefault("pipeline.timeout_secs", 10)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("webcheck.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("webcheck.rate_per_sec", 10.0)
	v.SetDefault("tagdetect.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("tagdetect.insecure_fallback", true)
	v.SetDefault("pagespeed.base_url", "https://www.googleapis.com/pagespeedonline/v5")
	v.SetDefault("pagespeed.strategy", "mobile")
	v.SetDefault("pagespeed.window_limit", 400)
	v.SetDefault("pagespeed.window_secs", 100)
	v.SetDefault("pagespeed.window_headroom", ratelimit.DefaultHeadroom)
	v.SetDefault("pagespeed.safe_rate", 1.5)
	v.SetDefault("pagespeed.daily_quota", 25000)
	v.SetDefault("pagespeed.timeout_secs", 30)
	v.SetDefault("pagespeed.rate_reset_secs", 2)
	v.SetDefault("dataforseo.base_url", "https://api.dataforseo.com/v3")
	v.SetDefault("dataforseo.cost_per_task", 0.0006)
	v.SetDefault("dataforseo.location", "United States")
	v.SetDefault("dataforseo.language", "en")
	v.SetDefault("dataforseo.poll_max_secs", 60)
	v.SetDefault("anymailfinder.base_url", "https://api.anymailfinder.com/v5.0")
	v.SetDefault("outscraper.base_url", "https://api.app.outscraper.com")
	v.SetDefault("history.path", "leadflow.db")

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
