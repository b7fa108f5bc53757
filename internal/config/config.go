// Package config loads sld-insights settings from config.yaml, .env and SLD_* variables.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/sld-insights/internal/aggregate"
	"github.com/sells-group/sld-insights/internal/dashboard"
	"github.com/sells-group/sld-insights/internal/fetcher"
	"github.com/sells-group/sld-insights/internal/model"
	"github.com/sells-group/sld-insights/internal/render"
	"github.com/sells-group/sld-insights/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Flow   FlowConfig   `yaml:"flow" mapstructure:"flow"`
	States StatesConfig `yaml:"states" mapstructure:"states"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Render render.Size  `yaml:"render" mapstructure:"render"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig names the dataset extracts.
type DataConfig struct {
	RecordsPath        string   `yaml:"records_path" mapstructure:"records_path"`
	MetroSummaryPath   string   `yaml:"metro_summary_path" mapstructure:"metro_summary_path"`
	SustainabilityPath string   `yaml:"sustainability_path" mapstructure:"sustainability_path"`
	StateShapesPath    string   `yaml:"state_shapes_path" mapstructure:"state_shapes_path"`
	DefaultMetros      []string `yaml:"default_metros" mapstructure:"default_metros"`
}

// Sources returns the dashboard sources of d.
func (d DataConfig) Sources() dashboard.Sources {
	return dashboard.Sources{
		Records:        d.RecordsPath,
		MetroSummary:   d.MetroSummaryPath,
		Sustainability: d.SustainabilityPath,
		StateShapes:    d.StateShapesPath,
	}
}

// FlowConfig configures the walkability to car ownership flow.
type FlowConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	TieBreak  string  `yaml:"tie_break" mapstructure:"tie_break"`
}

// StatesConfig configures the state choropleth.
type StatesConfig struct {
	Metric string `yaml:"metric" mapstructure:"metric"`
}

// FetchConfig configures remote dataset downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// StoreConfig configures snapshot persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.records_path", "public/cleaned_sld_data.csv")
	v.SetDefault("data.metro_summary_path", "public/metro_summary.csv")
	v.SetDefault("data.sustainability_path", "public/sustainability_data.json")
	v.SetDefault("data.state_shapes_path", "")
	v.SetDefault("data.default_metros", []string{dashboard.DefaultMetro})
	v.SetDefault("flow.threshold", 0.0)
	v.SetDefault("flow.tie_break", "fewer_cars")
	v.SetDefault("states.metric", string(model.Walkability))
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "sld-insights/1.0")
	v.SetDefault("fetch.rate_per_sec", 5.0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sld.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("render.width", render.DefaultSize.Width)
	v.SetDefault("render.height", render.DefaultSize.Height)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes: "serve",
// "snapshot", "" (dashboard commands).
func (c *Config) Validate(mode string) error {
	if c.Data.RecordsPath == "" {
		return eris.New("config: data.records_path is required")
	}
	if c.Flow.Threshold < 0 {
		return eris.Errorf("config: flow.threshold must be >= 0, got %g", c.Flow.Threshold)
	}
	if _, err := aggregate.ParseTieBreak(c.Flow.TieBreak); err != nil {
		return eris.Wrap(err, "config: flow.tie_break")
	}

	switch mode {
	case "":
		return nil
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return eris.Errorf("config: server.port must be 1-65535, got %d", c.Server.Port)
		}
		return c.validateStore()
	case "snapshot":
		return c.validateStore()
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
}

func (c *Config) validateStore() error {
	switch strings.ToLower(c.Store.Driver) {
	case "sqlite", "postgres", "postgresql", "pgx":
	default:
		return eris.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	return nil
}

// FlowOptions converts the flow settings. Validate has already checked them.
func (c *Config) FlowOptions() aggregate.FlowOptions {
	policy, _ := aggregate.ParseTieBreak(c.Flow.TieBreak)
	return aggregate.FlowOptions{Threshold: c.Flow.Threshold, TieBreak: policy}
}

// DashboardOptions collects the Build options.
func (c *Config) DashboardOptions() dashboard.Options {
	return dashboard.Options{
		Flow:        c.FlowOptions(),
		StateMetric: model.Metric(c.States.Metric),
	}
}

// HTTPOptions converts the fetch settings.
func (c *Config) HTTPOptions() fetcher.HTTPOptions {
	return fetcher.HTTPOptions{
		Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: c.Fetch.MaxRetries,
		UserAgent:  c.Fetch.UserAgent,
		RatePerSec: c.Fetch.RatePerSec,
	}
}

// PoolConfig returns the Postgres pool sizing.
func (c *Config) PoolConfig() *store.PoolConfig {
	return &store.PoolConfig{MaxConns: c.Store.MaxConns, MinConns: c.Store.MinConns}
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
