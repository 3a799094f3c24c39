/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package errmon

import (
	"fmt"
	"time"

	"github.com/acronis/go-appkit/config"
)

const cfgDefaultKeyPrefix = "errorMonitor"

const (
	cfgKeyMaxFingerprints = "maxFingerprints"
	cfgKeyRecentWindow    = "recentWindow"
	cfgKeySummaryWindow   = "summaryWindow"
	cfgKeyRateThreshold   = "rateThreshold"
	cfgKeyTopLimit        = "topLimit"
)

// Config represents a set of configuration parameters for Monitor.
type Config struct {
	MaxFingerprints int                 `mapstructure:"maxFingerprints" yaml:"maxFingerprints" json:"maxFingerprints"`
	RecentWindow    config.TimeDuration `mapstructure:"recentWindow" yaml:"recentWindow" json:"recentWindow"`
	SummaryWindow   config.TimeDuration `mapstructure:"summaryWindow" yaml:"summaryWindow" json:"summaryWindow"`
	RateThreshold   int                 `mapstructure:"rateThreshold" yaml:"rateThreshold" json:"rateThreshold"`
	TopLimit        int                 `mapstructure:"topLimit" yaml:"topLimit" json:"topLimit"`

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
		MaxFingerprints: DefaultMaxFingerprints,
		RecentWindow:    config.TimeDuration(DefaultRecentWindow),
		SummaryWindow:   config.TimeDuration(DefaultSummaryWindow),
		RateThreshold:   DefaultRateThreshold,
		TopLimit:        DefaultTopLimit,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// Options builds monitor Options from the configuration.
func (c *Config) Options() Options {
	return Options{
		MaxFingerprints: c.MaxFingerprints,
		RecentWindow:    time.Duration(c.RecentWindow),
		SummaryWindow:   time.Duration(c.SummaryWindow),
		RateThreshold:   c.RateThreshold,
		TopLimit:        c.TopLimit,
	}
}

// SetProviderDefaults sets default configuration values for Monitor in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxFingerprints, DefaultMaxFingerprints)
	dp.SetDefault(cfgKeyRecentWindow, DefaultRecentWindow)
	dp.SetDefault(cfgKeySummaryWindow, DefaultSummaryWindow)
	dp.SetDefault(cfgKeyRateThreshold, DefaultRateThreshold)
	dp.SetDefault(cfgKeyTopLimit, DefaultTopLimit)
}

// Set sets Monitor configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.MaxFingerprints, err = dp.GetInt(cfgKeyMaxFingerprints); err != nil {
		return err
	}
	if c.MaxFingerprints <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxFingerprints, fmt.Errorf("must be positive"))
	}
	var dur time.Duration
	if dur, err = dp.GetDuration(cfgKeyRecentWindow); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeyRecentWindow, fmt.Errorf("must be positive"))
	}
	c.RecentWindow = config.TimeDuration(dur)
	if dur, err = dp.GetDuration(cfgKeySummaryWindow); err != nil {
		return err
	}
	if dur <= 0 {
		return dp.WrapKeyErr(cfgKeySummaryWindow, fmt.Errorf("must be positive"))
	}
	c.SummaryWindow = config.TimeDuration(dur)
	if c.RateThreshold, err = dp.GetInt(cfgKeyRateThreshold); err != nil {
		return err
	}
	if c.RateThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyRateThreshold, fmt.Errorf("must not be negative"))
	}
	if c.TopLimit, err = dp.GetInt(cfgKeyTopLimit); err != nil {
		return err
	}
	if c.TopLimit <= 0 {
		return dp.WrapKeyErr(cfgKeyTopLimit, fmt.Errorf("must be positive"))
	}
	return nil
}
