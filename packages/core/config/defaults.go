package config

import "time"

// DefaultUserAgent is sent when neither the endpoint nor the config sets one.
const DefaultUserAgent = "quartz/0.1"

// DefaultDateFormat renders history timestamps.
const DefaultDateFormat = "%Y-%m-%d %H:%M:%S"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			FollowRedirects: BoolPtr(true),
			MaxRedirects:    10,
			ValidateSSL:     BoolPtr(true),
			UserAgent:       DefaultUserAgent,
		},
		UI: UIConfig{
			Colors: BoolPtr(true),
		},
		History: HistoryConfig{
			DateFormat: DefaultDateFormat,
		},
		Log: LogConfig{
			Level:  "warn",
			Pretty: BoolPtr(true),
		},
	}
}

// Template is written to .quartz/config.toml by init.
const Template = `# quartz workspace configuration.
# Every key can also be set with a QUARTZ_ environment variable,
# e.g. QUARTZ_HTTP_TIMEOUT=5s.

[http]
# timeout = "30s"
# follow_redirects = true
# max_redirects = 10
# validate_ssl = true
# proxy = ""
# user_agent = "quartz/0.1"

[ui]
# colors = true

[history]
# date_format = "%Y-%m-%d %H:%M:%S"

[log]
# level = "warn"
`
