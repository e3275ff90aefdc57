// Package config loads sandwich-lab settings from sandwich.yaml, SANDWICH_*
// environment variables and bound command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"solana-sandwich-lab/internal/detection"
	"solana-sandwich-lab/internal/publish"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SANDWICH"

// Input sources.
const (
	SourceCSV      = "csv"
	SourceJSONL    = "jsonl"
	SourcePostgres = "postgres"
	SourceWS       = "ws"
)

// ErrInvalid is returned when loaded values fail validation.
var ErrInvalid = errors.New("invalid config")

// Config stores all configuration for the application.
type Config struct {
	Detection  DetectionConfig `mapstructure:"detection"`
	Input      InputConfig     `mapstructure:"input"`
	Output     OutputConfig    `mapstructure:"output"`
	Postgres   DSNConfig       `mapstructure:"postgres"`
	ClickHouse DSNConfig       `mapstructure:"clickhouse"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Solana     SolanaConfig    `mapstructure:"solana"`
	Log        LogConfig       `mapstructure:"log"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
}

// DetectionConfig defines detector thresholds.
type DetectionConfig struct {
	WindowSeconds     []int         `mapstructure:"window_seconds" validate:"required,unique,dive,gt=0"`
	MinTrades         int           `mapstructure:"min_trades" validate:"gt=0"`
	MaxVictimRatio    float64       `mapstructure:"max_victim_ratio" validate:"gt=0,lte=1"`
	MinAttackerTrades int           `mapstructure:"min_attacker_trades" validate:"gt=0"`
	TokenPairPolicy   string        `mapstructure:"token_pair_policy" validate:"oneof=soft hard"`
	StrictWashFilter  bool          `mapstructure:"strict_wash_filter"`
	Workers           int           `mapstructure:"workers" validate:"gte=0"`
	Deadline          time.Duration `mapstructure:"deadline" validate:"gte=0"`
	Verbose           bool          `mapstructure:"verbose"`
	TopK              int           `mapstructure:"top_k" validate:"gte=0"`
}

// InputConfig defines where trade events come from.
type InputConfig struct {
	Source          string `mapstructure:"source" validate:"oneof=csv jsonl postgres ws"`
	Path            string `mapstructure:"path"`
	Kind            string `mapstructure:"kind"`
	StrictAddresses bool   `mapstructure:"strict_addresses"`
}

// OutputConfig defines which artifacts a run writes.
type OutputConfig struct {
	Dir         string `mapstructure:"dir" validate:"required"`
	WriteCSV    bool   `mapstructure:"write_csv"`
	WriteReport bool   `mapstructure:"write_report"`
}

// DSNConfig holds a database connection string. Empty disables the database.
type DSNConfig struct {
	DSN string `mapstructure:"dsn"`
}

// KafkaConfig defines the detections topic. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required"`
}

// SolanaConfig defines Solana endpoints.
type SolanaConfig struct {
	RPCEndpoint string `mapstructure:"rpc_endpoint" validate:"omitempty,url"`
	WSEndpoint  string `mapstructure:"ws_endpoint" validate:"omitempty,url"`
}

// LogConfig defines logger output.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// MetricsConfig defines the Prometheus listener. Empty address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// New returns a viper instance with defaults and environment overrides set.
// Callers may bind flags into it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	defaults := detection.DefaultConfig()
	v.SetDefault("detection.window_seconds", defaults.WindowSeconds)
	v.SetDefault("detection.min_trades", defaults.MinTrades)
	v.SetDefault("detection.max_victim_ratio", defaults.MaxVictimRatio)
	v.SetDefault("detection.min_attacker_trades", defaults.MinAttackerTrades)
	v.SetDefault("detection.token_pair_policy", string(defaults.TokenPairPolicy))
	v.SetDefault("detection.strict_wash_filter", defaults.StrictWashFilter)
	v.SetDefault("detection.workers", defaults.Workers)
	v.SetDefault("detection.deadline", time.Duration(0))
	v.SetDefault("detection.verbose", false)
	v.SetDefault("detection.top_k", 10)

	v.SetDefault("input.source", SourceCSV)
	v.SetDefault("input.path", "")
	v.SetDefault("input.kind", "TRADE")
	v.SetDefault("input.strict_addresses", false)

	v.SetDefault("output.dir", "out")
	v.SetDefault("output.write_csv", true)
	v.SetDefault("output.write_report", true)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("clickhouse.dsn", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", publish.DefaultTopic)
	v.SetDefault("solana.rpc_endpoint", "")
	v.SetDefault("solana.ws_endpoint", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.addr", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file and returns validated settings.
// An empty path searches for sandwich.yaml in the working directory and
// tolerates its absence; an explicit path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sandwich")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	return val
}

// Validate checks every field and reports all failures in one error
// wrapping ErrInvalid.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateInput checks that the configured input source can be opened.
// Commands that do not read trade events skip it.
func (c *Config) ValidateInput() error {
	switch c.Input.Source {
	case SourceCSV, SourceJSONL:
		if c.Input.Path == "" {
			return fmt.Errorf("%w: input.path is required for %s sources", ErrInvalid, c.Input.Source)
		}
	case SourcePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required for the postgres source", ErrInvalid)
		}
	case SourceWS:
		if c.Solana.WSEndpoint == "" {
			return fmt.Errorf("%w: solana.ws_endpoint is required for the ws source", ErrInvalid)
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	// Drop the root struct name.
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// DetectorConfig converts the detection section into detector settings.
func (c *Config) DetectorConfig() detection.Config {
	windows := make([]int, len(c.Detection.WindowSeconds))
	copy(windows, c.Detection.WindowSeconds)
	return detection.Config{
		WindowSeconds:     windows,
		MinTrades:         c.Detection.MinTrades,
		MaxVictimRatio:    c.Detection.MaxVictimRatio,
		MinAttackerTrades: c.Detection.MinAttackerTrades,
		TokenPairPolicy:   detection.TokenPairPolicy(c.Detection.TokenPairPolicy),
		StrictWashFilter:  c.Detection.StrictWashFilter,
		Workers:           c.Detection.Workers,
		Deadline:          c.Detection.Deadline,
		Verbose:           c.Detection.Verbose,
	}
}
