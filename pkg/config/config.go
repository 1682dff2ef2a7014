// Package config loads the gitexplorer configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/greg-hellings/gitexplorer/pkg/explorer"
	"github.com/greg-hellings/gitexplorer/pkg/repository"
	"github.com/greg-hellings/gitexplorer/pkg/state"
)

// Config represents the top-level configuration file structure
type Config struct {
	// Store is the path of the state file holding the repository registry.
	Store    string         `yaml:"store" toml:"store"`
	Gitee    GiteeConfig    `yaml:"gitee" toml:"gitee"`
	Messages MessagesConfig `yaml:"messages" toml:"messages"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// GiteeConfig selects which host is served by the Gitee backend
type GiteeConfig struct {
	Host   string `yaml:"host" toml:"host"`
	APIURL string `yaml:"apiURL" toml:"apiURL"`
}

// MessagesConfig holds the texts used for commits and merge requests
type MessagesConfig struct {
	Commit            string `yaml:"commit" toml:"commit"`
	MergeRequestTitle string `yaml:"mergeRequestTitle" toml:"mergeRequestTitle"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	_ = c.ApplyDefaults()
	return c
}

// DefaultPath returns ~/.config/gitexplorer/config.yaml.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return filepath.Join(".config", "gitexplorer", "config.yaml")
	}
	return filepath.Join(home, ".config", "gitexplorer", "config.yaml")
}

// Load reads the configuration at filename. An empty filename selects
// DefaultPath(), and a missing default file yields the defaults; an explicit
// file must exist.
func Load(filename string) (*Config, error) {
	if filename == "" {
		cfg, err := LoadFromFile(DefaultPath())
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("No configuration file, using defaults", "path", DefaultPath())
			return Default(), nil
		}
		return cfg, err
	}
	return LoadFromFile(filename)
}

// LoadFromFile reads a YAML or TOML configuration file (chosen by extension)
// and returns the parsed Config
func LoadFromFile(filename string) (*Config, error) {
	path, err := homedir.Expand(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	return &config, nil
}

// ApplyDefaults fills unset fields and validates the result
func (c *Config) ApplyDefaults() error {
	if c.Store == "" {
		c.Store = state.DefaultStatePath()
	}
	store, err := homedir.Expand(c.Store)
	if err != nil {
		return fmt.Errorf("invalid store path %q: %w", c.Store, err)
	}
	c.Store = store

	if c.Gitee.Host == "" {
		c.Gitee.Host = repository.DefaultGiteeHost
	}
	if c.Gitee.APIURL == "" {
		c.Gitee.APIURL = repository.DefaultGiteeAPIURL
	}
	if strings.Contains(c.Gitee.Host, "/") {
		return fmt.Errorf("gitee.host must be a bare host, got %q", c.Gitee.Host)
	}

	if c.Messages.Commit == "" {
		c.Messages.Commit = explorer.DefaultCommitMessage
	}
	if c.Messages.MergeRequestTitle == "" {
		c.Messages.MergeRequestTitle = explorer.DefaultMergeRequestTitle
	}

	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel converts a log.level value into a slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// FactoryOptions returns the repository factory settings of the config
func (c *Config) FactoryOptions() []repository.FactoryOption {
	return []repository.FactoryOption{
		repository.WithGiteeHost(c.Gitee.Host),
		repository.WithGiteeAPIURL(c.Gitee.APIURL),
	}
}

// ExplorerOptions returns the explorer settings of the config
func (c *Config) ExplorerOptions() []explorer.Option {
	return []explorer.Option{
		explorer.WithCommitMessage(c.Messages.Commit),
		explorer.WithMergeRequestTitle(c.Messages.MergeRequestTitle),
	}
}
