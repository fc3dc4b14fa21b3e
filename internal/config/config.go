package config

import (
	"fmt"
	"os"

	"aws2spaces/internal/keymap"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Source    StoreConfig `yaml:"source"`
	Target    StoreConfig `yaml:"target"`
	Migration Migration   `yaml:"migration"`
	LogLevel  string      `yaml:"log_level"`
}

// StoreConfig represents one object-store endpoint
type StoreConfig struct {
	Provider  string `yaml:"provider"` // aws | s3compat
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
	Bucket    string `yaml:"bucket"`
}

// Migration represents migration-specific configuration
type Migration struct {
	Prefix       string      `yaml:"prefix"`
	PageSize     int         `yaml:"page_size"`
	Concurrency  int         `yaml:"concurrency"`
	Retries      int         `yaml:"retries"`
	DryRun       bool        `yaml:"dry_run"`
	SucceededLog string      `yaml:"succeeded_log"`
	FailedLog    string      `yaml:"failed_log"`
	JournalDB    string      `yaml:"journal_db"`   // empty disables the outcome journal
	MetricsAddr  string      `yaml:"metrics_addr"` // empty disables the metrics server
	Rename       keymap.Rule `yaml:"rename"`
}

// Load loads configuration from file and command line flags
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
		Source: StoreConfig{
			Provider: "aws",
		},
		Target: StoreConfig{
			Provider: "s3compat",
			Secure:   true,
		},
		Migration: Migration{
			PageSize:     1000,
			Concurrency:  16,
			Retries:      3,
			SucceededLog: "./transferred.log",
			FailedLog:    "./failed.log",
		},
	}

	// Load from YAML file if provided
	if configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with command line flags
	if err := loadFromFlags(cfg, flags); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags.Changed("src-provider") {
		cfg.Source.Provider, _ = flags.GetString("src-provider")
	}
	if flags.Changed("src-endpoint") {
		cfg.Source.Endpoint, _ = flags.GetString("src-endpoint")
	}
	if flags.Changed("src-region") {
		cfg.Source.Region, _ = flags.GetString("src-region")
	}
	if flags.Changed("src-access-key") {
		cfg.Source.AccessKey, _ = flags.GetString("src-access-key")
	}
	if flags.Changed("src-secret-key") {
		cfg.Source.SecretKey, _ = flags.GetString("src-secret-key")
	}
	if flags.Changed("src-secure") {
		cfg.Source.Secure, _ = flags.GetBool("src-secure")
	}
	if flags.Changed("src-bucket") {
		cfg.Source.Bucket, _ = flags.GetString("src-bucket")
	}

	if flags.Changed("dst-provider") {
		cfg.Target.Provider, _ = flags.GetString("dst-provider")
	}
	if flags.Changed("dst-endpoint") {
		cfg.Target.Endpoint, _ = flags.GetString("dst-endpoint")
	}
	if flags.Changed("dst-region") {
		cfg.Target.Region, _ = flags.GetString("dst-region")
	}
	if flags.Changed("dst-access-key") {
		cfg.Target.AccessKey, _ = flags.GetString("dst-access-key")
	}
	if flags.Changed("dst-secret-key") {
		cfg.Target.SecretKey, _ = flags.GetString("dst-secret-key")
	}
	if flags.Changed("dst-secure") {
		cfg.Target.Secure, _ = flags.GetBool("dst-secure")
	}
	if flags.Changed("dst-bucket") {
		cfg.Target.Bucket, _ = flags.GetString("dst-bucket")
	}

	if flags.Changed("prefix") {
		cfg.Migration.Prefix, _ = flags.GetString("prefix")
	}
	if flags.Changed("page-size") {
		cfg.Migration.PageSize, _ = flags.GetInt("page-size")
	}
	if flags.Changed("concurrency") {
		cfg.Migration.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("retries") {
		cfg.Migration.Retries, _ = flags.GetInt("retries")
	}
	if flags.Changed("dry-run") {
		cfg.Migration.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("succeeded-log") {
		cfg.Migration.SucceededLog, _ = flags.GetString("succeeded-log")
	}
	if flags.Changed("failed-log") {
		cfg.Migration.FailedLog, _ = flags.GetString("failed-log")
	}
	if flags.Changed("journal-db") {
		cfg.Migration.JournalDB, _ = flags.GetString("journal-db")
	}
	if flags.Changed("metrics-addr") {
		cfg.Migration.MetricsAddr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("rename-mode") {
		mode, _ := flags.GetString("rename-mode")
		cfg.Migration.Rename.Mode = keymap.Mode(mode)
	}
	if flags.Changed("rename-from") {
		cfg.Migration.Rename.From, _ = flags.GetString("rename-from")
	}
	if flags.Changed("rename-to") {
		cfg.Migration.Rename.To, _ = flags.GetString("rename-to")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	return nil
}

func (c *Config) validate() error {
	if err := validateStore("source", c.Source); err != nil {
		return err
	}
	if err := validateStore("target", c.Target); err != nil {
		return err
	}

	if c.Migration.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Migration.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.Migration.Retries <= 0 {
		return fmt.Errorf("retries must be positive")
	}
	if c.Migration.SucceededLog == "" || c.Migration.FailedLog == "" {
		return fmt.Errorf("succeeded and failed log paths are required")
	}

	if err := c.Migration.Rename.Validate(); err != nil {
		return fmt.Errorf("invalid rename rule: %w", err)
	}

	return nil
}

func validateStore(name string, s StoreConfig) error {
	switch s.Provider {
	case "aws":
		if s.Region == "" {
			return fmt.Errorf("%s region is required for the aws provider", name)
		}
	case "s3compat":
		if s.Endpoint == "" {
			return fmt.Errorf("%s endpoint is required for the s3compat provider", name)
		}
		if s.AccessKey == "" {
			return fmt.Errorf("%s access key is required", name)
		}
		if s.SecretKey == "" {
			return fmt.Errorf("%s secret key is required", name)
		}
	default:
		return fmt.Errorf("%s provider must be aws or s3compat (got %q)", name, s.Provider)
	}

	if s.Bucket == "" {
		return fmt.Errorf("%s bucket is required", name)
	}

	return nil
}
