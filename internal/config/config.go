// Package config holds runtime settings shared by the CLI commands. Values
// come from an optional YAML file and are then overridden by SCSB_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nypl/scsbxml/internal/scsb"
)

// Sierra configures the catalog API client.
type Sierra struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	TokenURL     string        `yaml:"token_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// S3 configures the export bucket.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

type Config struct {
	Sierra               Sierra `yaml:"sierra"`
	S3                   S3     `yaml:"s3"`
	Barcodes             string `yaml:"barcodes"`
	FallbackCustomerCode string `yaml:"fallback_customer_code"`
	InstitutionID        string `yaml:"institution_id"`
	Policy               string `yaml:"policy"`
	Port                 string `yaml:"port"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Sierra: Sierra{
			Timeout: 30 * time.Second,
		},
		S3: S3{
			Region: "us-east-1",
		},
		FallbackCustomerCode: scsb.DefaultFallbackCustomerCode,
		InstitutionID:        scsb.DefaultInstitutionID,
		Port:                 "8888",
	}
}

// LoadFromFile reads path on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults, or the file at path when one is given, with
// environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from SCSB_* variables. Unset or empty
// variables leave the current value alone.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"SCSB_SIERRA_BASE_URL":        &c.Sierra.BaseURL,
		"SCSB_SIERRA_CLIENT_ID":       &c.Sierra.ClientID,
		"SCSB_SIERRA_CLIENT_SECRET":   &c.Sierra.ClientSecret,
		"SCSB_SIERRA_TOKEN_URL":       &c.Sierra.TokenURL,
		"SCSB_BARCODES":               &c.Barcodes,
		"SCSB_FALLBACK_CUSTOMER_CODE": &c.FallbackCustomerCode,
		"SCSB_INSTITUTION_ID":         &c.InstitutionID,
		"SCSB_POLICY":                 &c.Policy,
		"SCSB_S3_BUCKET":              &c.S3.Bucket,
		"SCSB_S3_REGION":              &c.S3.Region,
		"SCSB_S3_ENDPOINT":            &c.S3.Endpoint,
		"SCSB_S3_PREFIX":              &c.S3.Prefix,
		"SCSB_PORT":                   &c.Port,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SCSB_S3_PATH_STYLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCSB_S3_PATH_STYLE %q: %w", v, err)
		}
		c.S3.PathStyle = b
	}
	if v := os.Getenv("SCSB_SIERRA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SCSB_SIERRA_TIMEOUT %q: %w", v, err)
		}
		c.Sierra.Timeout = d
	}
	return nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if c.FallbackCustomerCode == "" {
		return fmt.Errorf("fallback customer code required")
	}
	if c.InstitutionID == "" {
		return fmt.Errorf("institution id required")
	}
	if c.Sierra.Timeout < 0 {
		return fmt.Errorf("sierra timeout must not be negative")
	}
	if c.Sierra.ClientID != "" && c.Sierra.TokenURL == "" {
		return fmt.Errorf("sierra token url required when a client id is set")
	}
	return nil
}

// ValidateSierra checks the settings the HTTP API needs.
func (c *Config) ValidateSierra() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Sierra.BaseURL == "" {
		return fmt.Errorf("sierra base url required")
	}
	return nil
}

// LoadPolicy returns the configured classification policy, or the embedded
// default when none is set.
func (c *Config) LoadPolicy() (*scsb.Policy, error) {
	if c.Policy == "" {
		return scsb.DefaultPolicy(), nil
	}
	return scsb.LoadPolicy(c.Policy)
}
