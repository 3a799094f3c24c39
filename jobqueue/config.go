/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package jobqueue

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "jobQueue"

const (
	cfgKeyConcurrency     = "concurrency"
	cfgKeyMaxQueueSize    = "maxQueueSize"
	cfgKeyMaxAttempts     = "maxAttempts"
	cfgKeyRetryInterval   = "retryInterval"
	cfgKeyRetentionPeriod = "retentionPeriod"
	cfgKeyHardLimit       = "hardLimit"
)

// Config represents a set of configuration parameters for Queue.
type Config struct {
	Concurrency  int `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
	MaxQueueSize int `mapstructure:"maxQueueSize" yaml:"maxQueueSize" json:"maxQueueSize"`
	MaxAttempts  int `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`

	// RetryInterval is the base delay of the linear retry backoff
	// (the n-th retry is delayed by RetryInterval multiplied by n).
	RetryInterval config.TimeDuration `mapstructure:"retryInterval" yaml:"retryInterval" json:"retryInterval"`

	// RetentionPeriod is how long terminal jobs are kept for status queries.
	RetentionPeriod config.TimeDuration `mapstructure:"retentionPeriod" yaml:"retentionPeriod" json:"retentionPeriod"`

	// HardLimit is the stored jobs ceiling triggering emergency cleanup.
	HardLimit int `mapstructure:"hardLimit" yaml:"hardLimit" json:"hardLimit"`

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
		Concurrency:     DefaultConcurrency,
		MaxQueueSize:    DefaultMaxQueueSize,
		MaxAttempts:     DefaultMaxAttempts,
		RetryInterval:   config.TimeDuration(DefaultRetryInterval),
		RetentionPeriod: config.TimeDuration(DefaultRetentionPeriod),
		HardLimit:       DefaultHardLimit,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// Options builds queue Options from the configuration.
func (c *Config) Options() Options {
	return Options{
		Concurrency:     c.Concurrency,
		MaxQueueSize:    c.MaxQueueSize,
		MaxAttempts:     c.MaxAttempts,
		RetryPolicy:     NewLinearBackoffPolicy(time.Duration(c.RetryInterval)),
		RetentionPeriod: time.Duration(c.RetentionPeriod),
		HardLimit:       c.HardLimit,
	}
}

// SetProviderDefaults sets default configuration values for Queue in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyConcurrency, DefaultConcurrency)
	dp.SetDefault(cfgKeyMaxQueueSize, DefaultMaxQueueSize)
	dp.SetDefault(cfgKeyMaxAttempts, DefaultMaxAttempts)
	dp.SetDefault(cfgKeyRetryInterval, DefaultRetryInterval)
	dp.SetDefault(cfgKeyRetentionPeriod, DefaultRetentionPeriod)
	dp.SetDefault(cfgKeyHardLimit, DefaultHardLimit)
}

// Set sets Queue configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Concurrency, err = dp.GetInt(cfgKeyConcurrency); err != nil {
		return err
	}
	if c.Concurrency <= 0 {
		return dp.WrapKeyErr(cfgKeyConcurrency, fmt.Errorf("must be positive"))
	}
	if c.MaxQueueSize, err = dp.GetInt(cfgKeyMaxQueueSize); err != nil {
		return err
	}
	if c.MaxQueueSize <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxQueueSize, fmt.Errorf("must be positive"))
	}
	if c.MaxAttempts, err = dp.GetInt(cfgKeyMaxAttempts); err != nil {
		return err
	}
	if c.MaxAttempts <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxAttempts, fmt.Errorf("must be positive"))
	}
	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyRetryInterval); err != nil {
		return err
	}
	if dur < 0 {
		return dp.WrapKeyErr(cfgKeyRetryInterval, fmt.Errorf("must not be negative"))
	}
	c.RetryInterval = config.TimeDuration(dur)
	if dur, err = dp.GetDuration(cfgKeyRetentionPeriod); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyRetentionPeriod, fmt.Errorf("must be positive"))
	}
	c.RetentionPeriod = config.TimeDuration(dur)
	if c.HardLimit, err = dp.GetInt(cfgKeyHardLimit); err != nil {
		return err
	}
	if c.HardLimit <= 0 {
		return dp.WrapKeyErr(cfgKeyHardLimit, fmt.Errorf("must be positive"))
	}
	return nil
}
