// Package config handles configuration loading for quartz.
//
// Settings are read with viper from the user config file
// ($XDG_CONFIG_HOME/quartz/config.toml), then from the workspace's
// .quartz/config.toml, then from QUARTZ_* environment variables. Later sources
// win. Unset values fall back to DefaultConfig.
package config
