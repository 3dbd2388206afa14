// Package config loads hdcore's runtime configuration: a base TOML
// file decoded with BurntSushi/toml, overlaid with environment
// variables bound through viper. This mirrors the two-library split
// the rest of the corpus uses for configuration (a static file for
// checked-in defaults, viper for the knobs an operator overrides per
// deployment) without pulling viper's own file-format parsing into
// the loop.
package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/vaultwarden-hd/hdcore/derivation"
)

// EnvPrefix is the prefix every environment-variable override is
// bound under, e.g. HDCORE_CACHE_FILE_PATH.
const EnvPrefix = "HDCORE"

// Logger controls zerolog's level and console writer.
type Logger struct {
	Level              string `toml:"level"`
	PrettyPrintConsole bool   `toml:"pretty_print_console"`
}

// Cache configures the on-disk factor-instances cache.
type Cache struct {
	FilePath string `toml:"file_path"`
}

// Redis configures the session-mirror's connection.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Metrics holds the Prometheus exposition address. ListenAddr is
// loaded like every other setting; no hdcore command serves an HTTP
// endpoint on it.
type Metrics struct {
	ListenAddr string `toml:"listen_addr"`
}

// Config is hdcore's top-level configuration.
type Config struct {
	CurrentNetwork derivation.NetworkID `toml:"current_network"`
	Logger         Logger               `toml:"logger"`
	Cache          Cache                `toml:"cache"`
	Redis          Redis                `toml:"redis"`
	Metrics        Metrics              `toml:"metrics"`
}

// Default returns the configuration used when no file is supplied:
// mainnet, an info-level pretty console logger, and a local cache
// file.
func Default() Config {
	return Config{
		CurrentNetwork: 1,
		Logger:         Logger{Level: "info", PrettyPrintConsole: true},
		Cache:          Cache{FilePath: "hdcore-cache.json"},
		Redis:          Redis{Addr: "127.0.0.1:6379", DB: 0},
		Metrics:        Metrics{ListenAddr: ":9090"},
	}
}

// Load decodes path (if non-empty) over Default(), then lets any
// HDCORE_-prefixed environment variable override individual fields.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "decode config file %q", path)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind := map[string]*string{
		"logger.level":    &cfg.Logger.Level,
		"cache.file_path": &cfg.Cache.FilePath,
		"redis.addr":      &cfg.Redis.Addr,
		"redis.password":  &cfg.Redis.Password,
		"metrics.listen_addr": &cfg.Metrics.ListenAddr,
	}
	for key, dest := range bind {
		_ = v.BindEnv(key)
		if val := v.GetString(key); val != "" {
			*dest = val
		}
	}
	if v.IsSet("current_network") {
		cfg.CurrentNetwork = derivation.NetworkID(v.GetUint32("current_network"))
	}
	if v.IsSet("logger.pretty_print_console") {
		cfg.Logger.PrettyPrintConsole = v.GetBool("logger.pretty_print_console")
	}
	if v.IsSet("redis.db") {
		cfg.Redis.DB = v.GetInt("redis.db")
	}

	return cfg, nil
}
