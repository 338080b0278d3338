// Package config loads querykit settings from a yaml file, the environment
// and .env files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/querykit/query/cache"
	"github.com/satishbabariya/querykit/query/codec"
	"github.com/satishbabariya/querykit/query/driver"
)

// AppFs is the filesystem config and .env files are read from.
var AppFs = afero.NewOsFs()

const (
	configName = ".querykit"
	envPrefix  = "QUERYKIT"
)

// Config holds the application configuration
type Config struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Prefix          string        `mapstructure:"prefix"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Debug           bool          `mapstructure:"debug"`
	LogFormat       string        `mapstructure:"log_format"`
	Codec           CodecConfig   `mapstructure:"codec"`
	ResultCache     CacheConfig   `mapstructure:"result_cache"`
}

// CacheConfig configures the SELECT result cache. A zero Size disables it.
type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// CodecConfig configures the value codec.
type CodecConfig struct {
	Format            string `mapstructure:"format"`
	Key               string `mapstructure:"key"`
	Compress          bool   `mapstructure:"compress"`
	CompressThreshold int    `mapstructure:"compress_threshold"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := driver.DefaultConfig()
	v.SetDefault("driver", defaults.Provider)
	v.SetDefault("dsn", "")
	v.SetDefault("prefix", "")
	v.SetDefault("max_open_conns", defaults.MaxOpenConns)
	v.SetDefault("max_idle_conns", defaults.MaxIdleConns)
	v.SetDefault("conn_max_lifetime", defaults.ConnMaxLifetime)
	v.SetDefault("conn_max_idle_time", defaults.ConnMaxIdleTime)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("codec.format", "json")
	v.SetDefault("codec.key", "")
	v.SetDefault("codec.compress", false)
	v.SetDefault("codec.compress_threshold", 1024)
	v.SetDefault("result_cache.size", 0)
	v.SetDefault("result_cache.ttl", time.Minute)
	return v
}

// LoadConfig loads configuration from file, .env files and the environment.
// An empty file searches ./.querykit.yaml, ~/.querykit.yaml and
// ~/.config/querykit/.querykit.yaml; a missing file is not an error.
func LoadConfig(file string) (*Config, error) {
	loadDotEnv(".env", false)
	loadDotEnv(".env.local", true)

	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "querykit"))

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// loadDotEnv exports the variables of an env file found on AppFs. Unless
// overload is set, variables that already hold a value are kept.
func loadDotEnv(name string, overload bool) {
	f, err := AppFs.Open(name)
	if err != nil {
		return
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		// a broken env file is ignored like a missing one
		return
	}
	for key, value := range vars {
		if overload || os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// SaveConfig writes cfg as yaml. An empty file writes
// ~/.config/querykit/.querykit.yaml.
func SaveConfig(cfg *Config, file string) error {
	if file == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		file = filepath.Join(home, ".config", "querykit", configName+".yaml")
	}
	if err := AppFs.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.Set("driver", cfg.Driver)
	v.Set("dsn", cfg.DSN)
	v.Set("prefix", cfg.Prefix)
	v.Set("max_open_conns", cfg.MaxOpenConns)
	v.Set("max_idle_conns", cfg.MaxIdleConns)
	v.Set("conn_max_lifetime", cfg.ConnMaxLifetime.String())
	v.Set("conn_max_idle_time", cfg.ConnMaxIdleTime.String())
	v.Set("debug", cfg.Debug)
	v.Set("log_format", cfg.LogFormat)
	v.Set("codec.format", cfg.Codec.Format)
	v.Set("codec.key", cfg.Codec.Key)
	v.Set("codec.compress", cfg.Codec.Compress)
	v.Set("codec.compress_threshold", cfg.Codec.CompressThreshold)
	v.Set("result_cache.size", cfg.ResultCache.Size)
	v.Set("result_cache.ttl", cfg.ResultCache.TTL.String())
	return v.WriteConfigAs(file)
}

// DriverConfig returns the connection settings.
func (c *Config) DriverConfig() driver.Config {
	return driver.Config{
		Provider:        c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

// Results returns the result cache, nil when it is disabled.
func (c *Config) Results() *cache.Results {
	if c.ResultCache.Size <= 0 {
		return nil
	}
	return cache.NewResults(c.ResultCache.Size, c.ResultCache.TTL)
}

// CodecOptions returns the codec options.
func (c *Config) CodecOptions() []codec.Option {
	var opts []codec.Option
	if strings.EqualFold(c.Codec.Format, "serialized") || strings.EqualFold(c.Codec.Format, "yaml") {
		opts = append(opts, codec.WithFormat(codec.FormatSerialized))
	}
	if c.Codec.Compress {
		opts = append(opts, codec.WithCompression(c.Codec.CompressThreshold))
	}
	if c.Codec.Key != "" {
		opts = append(opts, codec.WithKey(c.Codec.Key))
	}
	return opts
}
