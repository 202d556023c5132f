package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Address      string        `mapstructure:"address"`
	DatabasePath string        `mapstructure:"database_path"`
	RateLimitQPS float64       `mapstructure:"rate_limit_qps"`
	RescanDelay  time.Duration `mapstructure:"rescan_delay"`
	Keyring      Keyring       `mapstructure:"keyring"`
	Providers    Providers     `mapstructure:"providers"`
	Log          Log           `mapstructure:"log"`
}

type Keyring struct {
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Password string `mapstructure:"password"`
}

type Providers struct {
	ClaudeURL string        `mapstructure:"claude_url"`
	GeminiURL string        `mapstructure:"gemini_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (conf Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("address", conf.Address),
		slog.String("database_path", conf.DatabasePath),
		slog.Float64("rate_limit_qps", conf.RateLimitQPS),
		slog.Duration("rescan_delay", conf.RescanDelay),
		slog.Group("keyring",
			slog.String("backend", conf.Keyring.Backend),
			slog.String("dir", conf.Keyring.Dir),
			slog.String("password", "<hidden>"),
		),
		slog.Group("providers",
			slog.String("claude_url", conf.Providers.ClaudeURL),
			slog.String("gemini_url", conf.Providers.GeminiURL),
			slog.Duration("timeout", conf.Providers.Timeout),
		),
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", "127.0.0.1:8787")
	v.SetDefault("database_path", "")
	v.SetDefault("rate_limit_qps", 10.0)
	v.SetDefault("rescan_delay", "500ms")
	v.SetDefault("keyring.backend", "auto")
	v.SetDefault("keyring.dir", "")
	v.SetDefault("keyring.password", "")
	v.SetDefault("providers.claude_url", "")
	v.SetDefault("providers.gemini_url", "")
	v.SetDefault("providers.timeout", "60s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yaml from the working directory or ./config, then
// DISCUSSDRAFT_* environment variables. A missing file is not an error.
func Load() (*Config, error) {
	return load(".", "./config")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// DISCUSSDRAFT_PROVIDERS_CLAUDE_URL and friends
	v.SetEnvPrefix("DISCUSSDRAFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if c.RateLimitQPS < 0 {
		return nil, errors.New("rate_limit_qps must not be negative")
	}
	return &c, nil
}

// NewLogger builds the process logger from the log section.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: l.level()}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l Log) level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
