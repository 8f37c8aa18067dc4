// Package config loads the application configuration from
// $WORKDIR/appconfig/<environment>.yaml, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/redhat-data-and-ai/classroster/pkg/cache"
)

type App struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Durable configures the per-key store adapters.
type Durable struct {
	Debounce         time.Duration `mapstructure:"debounce"`
	CrossContextSync bool          `mapstructure:"crossContextSync"`
	WriteTimeout     time.Duration `mapstructure:"writeTimeout"`
}

// Repository configures the read cache in front of the collections.
type Repository struct {
	CacheTTL           time.Duration `mapstructure:"cacheTTL"`
	RefreshBeforeWrite bool          `mapstructure:"refreshBeforeWrite"`
}

// Integrity configures class/student consistency handling.
type Integrity struct {
	DefaultClassName string        `mapstructure:"defaultClassName"`
	AutoCleanup      bool          `mapstructure:"autoCleanup"`
	SweepInterval    time.Duration `mapstructure:"sweepInterval"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type AppConfig struct {
	App        App          `mapstructure:"app"`
	Log        Log          `mapstructure:"log"`
	Cache      cache.Config `mapstructure:"cache"`
	Durable    Durable      `mapstructure:"durable"`
	Repository Repository   `mapstructure:"repository"`
	Integrity  Integrity    `mapstructure:"integrity"`
	API        API          `mapstructure:"api"`
}

var (
	mu        sync.RWMutex
	appConfig *AppConfig
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "classroster")
	v.SetDefault("app.environment", "default")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("cache.driver", cache.DriverMemory)
	v.SetDefault("cache.inmemory.defaultExpiration", -1)
	v.SetDefault("cache.inmemory.cleanupInterval", -1)
	v.SetDefault("durable.debounce", "300ms")
	v.SetDefault("durable.crossContextSync", true)
	v.SetDefault("durable.writeTimeout", "5s")
	v.SetDefault("repository.cacheTTL", "5m")
	v.SetDefault("repository.refreshBeforeWrite", false)
	v.SetDefault("integrity.autoCleanup", true)
	v.SetDefault("integrity.sweepInterval", "10m")
	v.SetDefault("api.port", 8080)
}

// LoadConfig reads the configuration for the given environment and makes it
// available through GetConfig. A missing file is an error; missing keys fall
// back to defaults.
func LoadConfig(environment string) (*AppConfig, error) {
	workdir := os.Getenv("WORKDIR")
	if workdir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		workdir = wd
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filepath.Join(workdir, "appconfig", environment+".yaml"))
	v.SetEnvPrefix("CLASSROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config for environment %s: %w", environment, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	mu.Lock()
	appConfig = cfg
	mu.Unlock()

	return cfg, nil
}

// GetConfig returns the configuration last loaded by LoadConfig, or nil.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	return appConfig
}
