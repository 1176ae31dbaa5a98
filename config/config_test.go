package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "./data/metrics.db", cfg.DBPath)
	assert.Equal(t, "./data", cfg.ReportDir)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.Duration)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, time.Second, cfg.SampleWindow)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("SYSMON_DBPATH", "/var/lib/sysmon/metrics.db")
	t.Setenv("SYSMON_INTERVAL", "30s")
	t.Setenv("SYSMON_TOPN", "10")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sysmon/metrics.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 10, cfg.TopN)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sysmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dbpath: /tmp/from-file.db
duration: 2m
loglevel: debug
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-file.db", cfg.DBPath)
	assert.Equal(t, 2*time.Minute, cfg.Duration)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("SYSMON_DBPATH", "/from/env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "warn"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DBPath, "unset flag must not shadow env")
	assert.Equal(t, "warn", cfg.LogLevel)

	require.NoError(t, flags.Parse([]string{"--db", "/from/flag.db"}))
	cfg, err = Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag.db", cfg.DBPath)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("SYSMON_TOPN", "0")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "TopN")
}
