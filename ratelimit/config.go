/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyMaxTokens  = "maxTokens"
	cfgKeyRefillRate = "refillRatePerSecond"
)

// Default configuration values.
const (
	DefaultMaxTokens  = 10
	DefaultRefillRate = 5.0
)

// Config represents a set of configuration parameters for Bucket.
type Config struct {
	// MaxTokens is the bucket capacity, i.e. the maximum burst size.
	MaxTokens int `mapstructure:"maxTokens" yaml:"maxTokens" json:"maxTokens"`

	// RefillRatePerSecond is the steady token refill rate.
	RefillRatePerSecond float64 `mapstructure:"refillRatePerSecond" yaml:"refillRatePerSecond" json:"refillRatePerSecond"`

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
		keyPrefix:           opts.keyPrefix,
		MaxTokens:           DefaultMaxTokens,
		RefillRatePerSecond: DefaultRefillRate,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for Bucket in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxTokens, DefaultMaxTokens)
	dp.SetDefault(cfgKeyRefillRate, DefaultRefillRate)
}

// Set sets Bucket configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.MaxTokens, err = dp.GetInt(cfgKeyMaxTokens); err != nil {
		return err
	}
	if c.MaxTokens <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxTokens, fmt.Errorf("must be positive"))
	}
	if c.RefillRatePerSecond, err = dp.GetFloat64(cfgKeyRefillRate); err != nil {
		return err
	}
	if c.RefillRatePerSecond <= 0 {
		return dp.WrapKeyErr(cfgKeyRefillRate, fmt.Errorf("must be positive"))
	}
	return nil
}
