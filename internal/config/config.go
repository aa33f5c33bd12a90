// Package config provides environment-variable-first configuration loading
// with optional YAML file fallback for the forwarder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mailwheel/ses-forwarder/internal/rules"
)

// Config holds the complete application configuration.
type Config struct {
	Forward ForwardConfig `yaml:"forward"`
	S3      S3Config      `yaml:"s3"`
	SES     SESConfig     `yaml:"ses"`
	Logging LoggingConfig `yaml:"logging"`
}

// ForwardConfig holds the message-rewrite settings and the forwarding rules.
type ForwardConfig struct {
	// SenderAddress is the verified address rewritten From headers point
	// at. When empty, the matched original recipient is used instead.
	SenderAddress string `yaml:"sender_address"`

	// SubjectPrefix is prepended to every forwarded Subject when set.
	SubjectPrefix string `yaml:"subject_prefix"`

	// ForwardTo, when set, replaces the To header of every forwarded copy.
	ForwardTo string `yaml:"forward_to"`

	// AllowPlusAddressing strips "+tag" local-part suffixes before rule
	// matching.
	AllowPlusAddressing bool `yaml:"allow_plus_addressing"`

	// Rules maps address patterns (full address, "@domain", bare local
	// part, or the catch-all "@") to destination address lists.
	Rules map[string][]string `yaml:"rules"`
}

// S3Config holds the location of the stored inbound messages.
type S3Config struct {
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	KeyPrefix     string `yaml:"key_prefix"`
	ArchivePrefix string `yaml:"archive_prefix"`
}

// SESConfig holds the outbound SES client configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Validate builds the immutable rule table from the configured rule map.
// It fails when any rule key or destination list is malformed, so a bad
// table is caught once at startup rather than per message.
func (c *Config) Validate() (rules.Table, error) {
	table, err := rules.NewTable(c.Forward.Rules)
	if err != nil {
		return rules.Table{}, fmt.Errorf("invalid forwarding rules: %w", err)
	}
	return table, nil
}

// S3Configured returns true if the stored-message bucket is fully specified.
func (c *Config) S3Configured() bool {
	return c.S3.Region != "" && c.S3.Bucket != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("FORWARD_SENDER"); v != "" {
		c.Forward.SenderAddress = v
	}
	if v := os.Getenv("FORWARD_SUBJECT_PREFIX"); v != "" {
		c.Forward.SubjectPrefix = v
	}
	if v := os.Getenv("FORWARD_TO"); v != "" {
		c.Forward.ForwardTo = v
	}
	if v := os.Getenv("FORWARD_ALLOW_PLUS_ADDRESSING"); v != "" {
		if allow, err := strconv.ParseBool(v); err == nil {
			c.Forward.AllowPlusAddressing = allow
		}
	}

	if v := os.Getenv("S3_REGION"); v != "" {
		c.S3.Region = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.S3.Bucket = v
	}
	if v := os.Getenv("S3_KEY_PREFIX"); v != "" {
		c.S3.KeyPrefix = v
	}
	if v := os.Getenv("S3_ARCHIVE_PREFIX"); v != "" {
		c.S3.ArchivePrefix = v
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	// In Lambda, AWS_REGION is the runtime region; use it wherever a
	// region was not set explicitly.
	if v := os.Getenv("AWS_REGION"); v != "" {
		if c.S3.Region == "" {
			c.S3.Region = v
		}
		if c.SES.Region == "" {
			c.SES.Region = v
		}
	}
}
