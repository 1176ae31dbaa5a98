package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every configurable value for sysmon.
type Config struct {
	// Persistence
	DBPath string // path to the SQLite file, e.g. "./data/metrics.db"

	// Reporting
	ReportDir string // directory receiving saved PNG reports

	// Collection
	Interval     time.Duration // pause between samples
	Duration     time.Duration // total collection time
	TopN         int           // number of top processes kept per sample
	SampleWindow time.Duration // CPU measurement window
	Workers      int           // concurrent process inspections

	LogLevel string // debug|info|warn|error
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"db":         "DBPath",
	"log-level":  "LogLevel",
	"report-dir": "ReportDir",
}

// Load reads configuration from (in decreasing priority):
//  1. command-line flags in flags that were explicitly set
//  2. environment variables prefixed with SYSMON_ (e.g. SYSMON_DBPATH),
//     including those loaded from a ./.env file
//  3. the yaml file at file, or ./configs/config.yaml if file is empty
//  4. defaults
//
// flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("DBPath", "./data/metrics.db")
	v.SetDefault("ReportDir", "./data")
	v.SetDefault("Interval", 5*time.Second)
	v.SetDefault("Duration", 60*time.Second)
	v.SetDefault("TopN", 5)
	v.SetDefault("SampleWindow", time.Second)
	v.SetDefault("Workers", 4)
	v.SetDefault("LogLevel", "info")

	v.SetEnvPrefix("SYSMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DBPath must not be empty")
	}
	if cfg.TopN <= 0 {
		return nil, fmt.Errorf("TopN must be positive, got %d", cfg.TopN)
	}
	return &cfg, nil
}
