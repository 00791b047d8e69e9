// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads niche configuration from defaults, an optional YAML
// file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/gobwas/glob"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/niche/internal/logging"
	"github.com/holomush/niche/internal/xdg"
	"github.com/holomush/niche/pkg/partition"
)

// Error codes returned by this package.
const (
	CodeRead    = "CONFIG_READ"
	CodeInvalid = "CONFIG_INVALID"
)

// Default values.
const (
	DefaultLogFormat     = "json"
	DefaultLogLevel      = "info"
	DefaultScanMode      = "full"
	DefaultMetricsAddr   = "127.0.0.1:9108"
	DefaultWatchPattern  = "*.{yaml,yml,json}"
	DefaultWatchInterval = 10 * time.Second
	DefaultLoadAttempts  = 5
)

// Config is the full niche configuration.
type Config struct {
	LogFormat   string      `koanf:"log_format"`
	LogLevel    string      `koanf:"log_level"`
	ScanMode    string      `koanf:"scan_mode"`
	MetricsAddr string      `koanf:"metrics_addr"`
	Watch       WatchConfig `koanf:"watch"`
}

// WatchConfig configures the snapshot directory watcher.
type WatchConfig struct {
	Dir      string        `koanf:"dir"`
	Pattern  string        `koanf:"pattern"`
	Interval time.Duration `koanf:"interval"`
	// Notify triggers a scan on file system events between polls.
	Notify bool `koanf:"notify"`
	// LoadAttempts bounds how often a snapshot that fails to load is retried
	// within one poll.
	LoadAttempts uint64 `koanf:"load_attempts"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogFormat:   DefaultLogFormat,
		LogLevel:    DefaultLogLevel,
		ScanMode:    DefaultScanMode,
		MetricsAddr: DefaultMetricsAddr,
		Watch: WatchConfig{
			Dir:          xdg.SnapshotDir(),
			Pattern:      DefaultWatchPattern,
			Interval:     DefaultWatchInterval,
			Notify:       true,
			LoadAttempts: DefaultLoadAttempts,
		},
	}
}

// flagKeys maps command-line flag names to configuration keys. Flags not
// listed here are not configuration.
var flagKeys = map[string]string{
	"log-format":    "log_format",
	"log-level":     "log_level",
	"scan-mode":     "scan_mode",
	"metrics-addr":  "metrics_addr",
	"dir":           "watch.dir",
	"pattern":       "watch.pattern",
	"interval":      "watch.interval",
	"notify":        "watch.notify",
	"load-attempts": "watch.load_attempts",
}

// Load builds the configuration. If path is empty the default config file is
// read when it exists. Flags override the file only when set explicitly.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = xdg.ConfigFile()
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code(CodeRead).With("path", path).Wrapf(err, "loading config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeRead).Wrapf(err, "loading flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid("log_format", c.LogFormat, "must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid("log_level", c.LogLevel, err.Error())
	}
	if _, err := partition.ParseScanMode(c.ScanMode); err != nil {
		return invalid("scan_mode", c.ScanMode, err.Error())
	}
	if c.Watch.Interval <= 0 {
		return invalid("watch.interval", c.Watch.Interval, "must be positive")
	}
	if c.Watch.LoadAttempts == 0 {
		return invalid("watch.load_attempts", c.Watch.LoadAttempts, "must be at least 1")
	}
	if _, err := glob.Compile(c.Watch.Pattern); err != nil {
		return invalid("watch.pattern", c.Watch.Pattern, err.Error())
	}
	return nil
}

// Scan returns the configured scan mode.
func (c *Config) Scan() partition.ScanMode {
	mode, _ := partition.ParseScanMode(c.ScanMode)
	return mode
}

// LoggingOptions returns logging options for service.
func (c *Config) LoggingOptions(service, version string) logging.Options {
	return logging.Options{
		Service: service,
		Version: version,
		Format:  c.LogFormat,
		Level:   c.LogLevel,
	}
}

func invalid(key string, value any, reason string) error {
	return oops.Code(CodeInvalid).
		With("key", key).
		With("value", value).
		Errorf("invalid %s: %s", key, reason)
}

// EnsureWatchDir creates the watch directory if it does not exist.
func (c *Config) EnsureWatchDir() error {
	if _, err := os.Stat(c.Watch.Dir); err == nil {
		return nil
	}
	return xdg.EnsureDir(c.Watch.Dir)
}
