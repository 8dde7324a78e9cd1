package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/quartz/packages/core/errdef"
	"github.com/spf13/viper"
)

// FileName is the config file name, both inside a workspace and in the user
// config directory.
const FileName = "config.toml"

// EnvPrefix prefixes environment variable overrides, e.g. QUARTZ_HTTP_TIMEOUT.
const EnvPrefix = "QUARTZ"

// Config represents the quartz configuration
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	UI      UIConfig      `mapstructure:"ui"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// HTTPConfig controls request execution.
type HTTPConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	FollowRedirects *bool         `mapstructure:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"`
	ValidateSSL     *bool         `mapstructure:"validate_ssl"`
	Proxy           string        `mapstructure:"proxy"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type UIConfig struct {
	Colors *bool `mapstructure:"colors"`
}

type HistoryConfig struct {
	DateFormat string `mapstructure:"date_format"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty *bool  `mapstructure:"pretty"`
}

// keys lists every setting so environment overrides are visible to Unmarshal.
var keys = []string{
	"http.timeout",
	"http.follow_redirects",
	"http.max_redirects",
	"http.validate_ssl",
	"http.proxy",
	"http.user_agent",
	"ui.colors",
	"history.date_format",
	"log.level",
	"log.pretty",
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.HTTP.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.HTTP.ValidateSSL, true)
}

// GetColors returns the colour setting, defaulting to true
func (c *Config) GetColors() bool {
	return getBool(c.UI.Colors, true)
}

// GetLogPretty returns whether logs use the text handler, defaulting to true
func (c *Config) GetLogPretty() bool {
	return getBool(c.Log.Pretty, true)
}

// UserConfigPath is the per-user config file, honouring XDG_CONFIG_HOME.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "quartz", FileName)
}

// Load reads the user config and then the workspace config, the latter taking
// precedence, and finally applies QUARTZ_* environment overrides. Missing
// files are not an error. An empty workspaceDir skips the workspace file.
func Load(workspaceDir string) (*Config, error) {
	paths := []string{UserConfigPath()}
	if workspaceDir != "" {
		paths = append(paths, filepath.Join(workspaceDir, FileName))
	}
	return LoadFiles(paths...)
}

// LoadFiles merges the given config files in order over the defaults.
func LoadFiles(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "binding %s", key)
		}
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errdef.Persist(err, "opening config %s", path)
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "parsing config %s", path)
		}
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, errdef.Wrap(errdef.ErrMalformedInput, err, "decoding config")
	}
	return DefaultConfig().Merge(loaded), nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.HTTP.Timeout > 0 {
		result.HTTP.Timeout = other.HTTP.Timeout
	}
	if other.HTTP.MaxRedirects > 0 {
		result.HTTP.MaxRedirects = other.HTTP.MaxRedirects
	}
	if other.HTTP.Proxy != "" {
		result.HTTP.Proxy = other.HTTP.Proxy
	}
	if other.HTTP.UserAgent != "" {
		result.HTTP.UserAgent = other.HTTP.UserAgent
	}
	if other.History.DateFormat != "" {
		result.History.DateFormat = other.History.DateFormat
	}
	if other.Log.Level != "" {
		result.Log.Level = other.Log.Level
	}

	// Boolean flags - only override if explicitly set in other config
	if other.HTTP.FollowRedirects != nil {
		result.HTTP.FollowRedirects = other.HTTP.FollowRedirects
	}
	if other.HTTP.ValidateSSL != nil {
		result.HTTP.ValidateSSL = other.HTTP.ValidateSSL
	}
	if other.UI.Colors != nil {
		result.UI.Colors = other.UI.Colors
	}
	if other.Log.Pretty != nil {
		result.Log.Pretty = other.Log.Pretty
	}

	return &result
}
