/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyMaxEntries      = "maxEntries"
	cfgKeyDefaultTTL      = "defaultTTL"
	cfgKeyCleanupInterval = "cleanupInterval"
)

// Default configuration values.
const (
	DefaultMaxEntries = 1000
)

// Config represents a set of configuration parameters for Cache.
type Config struct {
	// MaxEntries is the maximum number of entries the cache may hold.
	MaxEntries int `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`

	// DefaultTTL is the TTL applied to entries added without an explicit one.
	// Zero means entries don't expire.
	DefaultTTL config.TimeDuration `mapstructure:"defaultTTL" yaml:"defaultTTL" json:"defaultTTL"`

	// CleanupInterval is the interval of the periodic sweep reclaiming expired entries.
	CleanupInterval config.TimeDuration `mapstructure:"cleanupInterval" yaml:"cleanupInterval" json:"cleanupInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:       opts.keyPrefix,
		MaxEntries:      DefaultMaxEntries,
		CleanupInterval: config.TimeDuration(DefaultCleanupInterval),
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// Options builds cache Options from the configuration.
func (c *Config) Options() Options {
	return Options{DefaultTTL: time.Duration(c.DefaultTTL)}
}

// SetProviderDefaults sets default configuration values for Cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxEntries, DefaultMaxEntries)
	dp.SetDefault(cfgKeyCleanupInterval, DefaultCleanupInterval)
}

// Set sets Cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	var dur time.Duration

	if c.MaxEntries, err = dp.GetInt(cfgKeyMaxEntries); err != nil {
		return err
	}
	if c.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxEntries, fmt.Errorf("must be positive"))
	}
	if dur, err = dp.GetDuration(cfgKeyDefaultTTL); err != nil {
		return err
	}
	if dur < 0 {
		return dp.WrapKeyErr(cfgKeyDefaultTTL, fmt.Errorf("must not be negative"))
	}
	c.DefaultTTL = config.TimeDuration(dur)
	if dur, err = dp.GetDuration(cfgKeyCleanupInterval); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyCleanupInterval, fmt.Errorf("must be positive"))
	}
	c.CleanupInterval = config.TimeDuration(dur)
	return nil
}
