package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"filippo.io/age"
	"github.com/codingric/moneyman/ledger/tracing"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
	AgeKey    string `mapstructure:"age_key"`

	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		SecureCookie    bool          `mapstructure:"secure_cookie"`
	} `mapstructure:"server"`

	Database struct {
		Client string `mapstructure:"client"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Tracing tracing.Settings `mapstructure:"tracing"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
	v.SetDefault("age_key", "")
	v.SetDefault("server.port", "3333")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.secure_cookie", false)
	v.SetDefault("database.client", "sqlite")
	v.SetDefault("database.dsn", "ledger.db")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.otlp_auth_key", "")
	v.SetDefault("tracing.jaeger_endpoint", "")
	v.SetDefault("tracing.stdout", false)
	v.SetDefault("tracing.environment", "")
}

// Load reads .env, the optional config file and the environment. path may
// be empty, in which case config.yaml is searched in . and /etc/ledger/.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("ledger")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("server.port", "LEDGER_SERVER_PORT", "PORT")
	v.BindEnv("database.client", "LEDGER_DATABASE_CLIENT", "DATABASE_CLIENT")
	v.BindEnv("database.dsn", "LEDGER_DATABASE_DSN", "DATABASE_URL")
	v.BindEnv("log_level", "LEDGER_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("age_key", "LEDGER_AGE_KEY", "AGE_KEY")
	v.BindEnv("tracing.otlp_endpoint", "LEDGER_TRACING_OTLP_ENDPOINT", "OTEL_GRPC_ENDPOINT")
	v.BindEnv("tracing.otlp_auth_key", "LEDGER_TRACING_OTLP_AUTH_KEY", "OTEL_AUTH_KEY")
	v.BindEnv("tracing.jaeger_endpoint", "LEDGER_TRACING_JAEGER_ENDPOINT", "OTEL_JAEGER_ENDPOINT")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ledger/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Debug().Msg("Config not found - using defaults")
	} else {
		log.Debug().Msgf("Config loaded `%s`", v.ConfigFileUsed())
	}

	var id age.Identity
	if key := v.GetString("age_key"); key != "" {
		x, err := LoadAgeIdentity(key)
		if err != nil {
			return nil, err
		}
		id = x
	}

	var c Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		AgeHookFunc(id),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&c, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &c, nil
}

// Level resolves the configured log level, falling back to info.
func (c *Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return l
}
