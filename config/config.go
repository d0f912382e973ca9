// Package config loads the pandda binary's configuration from a YAML file,
// a .env file and PANDDA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xraph/pandda/extension"
)

// EnvPrefix prefixes every environment override, e.g. PANDDA_HTTP_ADDR.
const EnvPrefix = "PANDDA"

// Config is the full binary configuration.
type Config struct {
	App struct {
		Env  string `mapstructure:"env"`
		Name string `mapstructure:"name"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"http"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"metrics"`

	// Pandda is the engine configuration shared with the Forge extension.
	Pandda extension.Config `mapstructure:"pandda"`
}

// IsDev reports whether the binary runs in the dev environment.
func (c Config) IsDev() bool { return strings.EqualFold(c.App.Env, "dev") }

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	var c Config
	c.App.Env = "prod"
	c.App.Name = "pandda"
	c.HTTP.Addr = ":8080"
	c.HTTP.ReadTimeout = 15 * time.Second
	c.HTTP.WriteTimeout = 30 * time.Second
	c.HTTP.ShutdownTimeout = 10 * time.Second
	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	c.Pandda = extension.DefaultConfig()
	return c
}

// envAliases bind short variable names to nested keys.
var envAliases = map[string]string{
	"pandda.jwt_secret":     "PANDDA_JWT_SECRET",
	"pandda.timezone":       "PANDDA_TIMEZONE",
	"pandda.store.driver":   "PANDDA_STORE_DRIVER",
	"pandda.store.dsn":      "PANDDA_STORE_DSN",
	"pandda.store.database": "PANDDA_STORE_DATABASE",
}

// Load reads path, or ./pandda.yaml when path is empty and the file
// exists. A .env file in the working directory is loaded first; variables
// already in the environment win over it.
func Load(path string) (Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pandda")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	c.Pandda = extension.MergeWithDefaults(c.Pandda)
	return c, nil
}

// Validate reports settings the binary cannot start with.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("config: http.addr is required")
	}
	if err := c.Pandda.Store.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !c.Pandda.DisableRoutes && c.Pandda.JWTSecret == "" {
		return errors.New("config: pandda.jwt_secret is required")
	}
	if _, err := c.Pandda.Location(); err != nil {
		return fmt.Errorf("config: pandda.timezone: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("app.env", d.App.Env)
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	v.SetDefault("http.shutdown_timeout", d.HTTP.ShutdownTimeout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)

	p := d.Pandda
	v.SetDefault("pandda.disable_routes", p.DisableRoutes)
	v.SetDefault("pandda.disable_migrate", p.DisableMigrate)
	v.SetDefault("pandda.base_path", p.BasePath)
	v.SetDefault("pandda.lock_timeout", p.LockTimeout)
	v.SetDefault("pandda.undo_timeout", p.UndoTimeout)
	v.SetDefault("pandda.timezone", p.Timezone)
	v.SetDefault("pandda.jwt_secret", p.JWTSecret)
	v.SetDefault("pandda.token_ttl", p.TokenTTL)
	v.SetDefault("pandda.store.driver", p.Store.Driver)
	v.SetDefault("pandda.store.dsn", p.Store.DSN)
	v.SetDefault("pandda.store.database", p.Store.Database)
	v.SetDefault("pandda.store.max_conns", p.Store.MaxConns)
	v.SetDefault("pandda.store.debug", p.Store.Debug)
}
