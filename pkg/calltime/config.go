// Package calltime loads configuration and assembles the sink pipeline and
// interceptor an application uses to time calls on its components.
package calltime

import (
	"fmt"
	"strings"

	"github.com/harunnryd/calltime/pkg/datasource"
	"github.com/harunnryd/calltime/pkg/errorsx"
	"github.com/harunnryd/calltime/pkg/logging"
	"github.com/spf13/viper"
)

const envPrefix = "CALLTIME"

type Config struct {
	LogLevel   string            `mapstructure:"log_level"`
	LogFormat  string            `mapstructure:"log_format"`
	Sinks      []SinkConfig      `mapstructure:"sinks"`
	Async      AsyncConfig       `mapstructure:"async"`
	Sampling   SamplingConfig    `mapstructure:"sampling"`
	Timeline   TimelineConfig    `mapstructure:"timeline"`
	Privacy    PrivacyConfig     `mapstructure:"privacy"`
	DataSource datasource.Config `mapstructure:"datasource"`
}

// SinkConfig selects a registered sink kind; Settings are kind specific.
type SinkConfig struct {
	Kind     string         `mapstructure:"kind"`
	Settings map[string]any `mapstructure:"settings"`
}

type AsyncConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Buffer  int  `mapstructure:"buffer"`
}

// SamplingConfig is off unless Enabled is set; a zero Config keeps every
// observation.
type SamplingConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`
}

type TimelineConfig struct {
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type PrivacyConfig struct {
	RedactErrors bool `mapstructure:"redact_errors"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("sinks", []map[string]any{{"kind": "stdout"}})
	v.SetDefault("async.enabled", false)
	v.SetDefault("async.buffer", 256)
	v.SetDefault("sampling.enabled", false)
	v.SetDefault("sampling.rate", 1.0)
	v.SetDefault("timeline.dir", "")
	v.SetDefault("timeline.retention_days", 0)
	v.SetDefault("privacy.redact_errors", true)
	v.SetDefault("datasource.name", "primary")
	v.SetDefault("datasource.dsn", "")
	v.SetDefault("datasource.max_conns", 0)
	v.SetDefault("datasource.min_conns", 0)
	v.SetDefault("datasource.connect_timeout", "5s")
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// LoadConfig reads path (any format viper understands) on top of the defaults.
// CALLTIME_* environment variables override scalar keys, e.g.
// CALLTIME_SAMPLING_RATE or CALLTIME_DATASOURCE_DSN. An empty path loads
// defaults and environment only.
func LoadConfig(path string) (Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsx.Wrapf(err, errorsx.ReasonConfigRead, "read config")
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsx.Wrapf(err, errorsx.ReasonConfigDecode, "unmarshal")
	}
	for i := range cfg.Sinks {
		cfg.Sinks[i].Kind = strings.ToLower(strings.TrimSpace(cfg.Sinks[i].Kind))
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return errorsx.Newf(errorsx.ReasonConfigInvalid, "log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return errorsx.Newf(errorsx.ReasonConfigInvalid, "log_format %q is not text or json", c.LogFormat)
	}
	if len(c.Sinks) == 0 {
		return errorsx.Newf(errorsx.ReasonConfigInvalid, "at least one sink is required")
	}
	for i, s := range c.Sinks {
		if s.Kind == "" {
			return errorsx.Newf(errorsx.ReasonConfigInvalid, "sinks[%d].kind is required", i)
		}
	}
	if c.Sampling.Enabled && (c.Sampling.Rate < 0 || c.Sampling.Rate > 1) {
		return errorsx.Newf(errorsx.ReasonConfigInvalid, "sampling.rate %v must be within [0, 1]", c.Sampling.Rate)
	}
	if c.Async.Buffer < 0 {
		return errorsx.Newf(errorsx.ReasonConfigInvalid, "async.buffer must not be negative")
	}
	if c.Timeline.RetentionDays < 0 {
		return errorsx.Newf(errorsx.ReasonConfigInvalid, "timeline.retention_days must not be negative")
	}
	if c.DataSource.DSN != "" {
		if err := c.DataSource.Validate(); err != nil {
			return fmt.Errorf("datasource: %w", err)
		}
	}
	return nil
}
