package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Mode is the run mode of the application.
type Mode string

const (
	ModeProd Mode = "prod"
	ModeDev  Mode = "dev"
	ModeTest Mode = "test"
)

// Stage selects how eagerly the container instantiates singletons.
type Stage string

const (
	// StageProduction instantiates every singleton while the container is built
	StageProduction Stage = "production"
	// StageDevelopment defers singletons until first use unless marked eager
	StageDevelopment Stage = "development"
)

// KeyModulesBasePackage is the property prefixing all convention lookups.
const KeyModulesBasePackage = "application.modules_base_package"

// Config holds all configuration for a kestrel application
type Config struct {
	Application struct {
		Name string `mapstructure:"name" validate:"required"`
		Mode Mode   `mapstructure:"mode" validate:"oneof=prod dev test"`
		// ModulesBasePackage prefixes conf.Module, conf.ServletModule and conf.Routes
		ModulesBasePackage string `mapstructure:"modules_base_package" validate:"omitempty,namespace"`
	} `mapstructure:"application"`

	Logging struct {
		Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format string `mapstructure:"format" validate:"oneof=console json"`
		Output string `mapstructure:"output" validate:"oneof=stdout stderr"`
	} `mapstructure:"logging"`

	Server struct {
		Enabled         bool          `mapstructure:"enabled"`
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	} `mapstructure:"server"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
	} `mapstructure:"metrics"`

	Scheduler struct {
		Enabled  bool   `mapstructure:"enabled"`
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"scheduler"`

	Convention struct {
		CacheSize int `mapstructure:"cache_size" validate:"gt=0"`
	} `mapstructure:"convention"`

	v *viper.Viper
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("application.name", "kestrel")
	v.SetDefault("application.mode", string(ModeProd))
	v.SetDefault(KeyModulesBasePackage, "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("convention.cache_size", 128)
}

// loadFromEnv binds KESTREL_* environment variables, e.g. KESTREL_SERVER_PORT
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix("KESTREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from defaults, the environment and an optional
// YAML file. An empty path searches for application.yaml in . and ./conf.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	loadFromEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("application")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./conf")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := fromViper(v)
	if err != nil {
		// defaults are static; failing here is a programming error
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return cfg
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct constraints of the configuration.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("config validation failed: metrics.path is required when metrics are enabled")
	}
	return nil
}

// Stage maps the application mode onto a container stage.
func (c *Config) Stage() Stage {
	if c.Application.Mode == ModeProd {
		return StageProduction
	}
	return StageDevelopment
}

// ServerAddr returns the host:port the HTTP server listens on.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetString returns a raw property, including keys the Config struct does not model.
func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// IsSet reports whether a raw property has a value.
func (c *Config) IsSet(key string) bool {
	return c.v != nil && c.v.IsSet(key)
}

// Set overrides a property. Both the raw property and the decoded struct are
// updated, so it must be called before the config is handed to a bootstrap.
// On error the config is left unchanged.
func (c *Config) Set(key string, value any) error {
	next := viper.New()
	if c.v == nil {
		setDefaults(next)
	} else if err := next.MergeConfigMap(c.v.AllSettings()); err != nil {
		return fmt.Errorf("unable to copy config: %w", err)
	}
	next.Set(key, value)

	updated, err := fromViper(next)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}
