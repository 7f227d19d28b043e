package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Razdnut/torna-a-casa/internal/cryptox"
	"github.com/Razdnut/torna-a-casa/internal/ledger"
	"github.com/Razdnut/torna-a-casa/internal/timeutil"
)

type Config struct {
	DatabasePath string `yaml:"DatabasePath"`
	FallbackPath string `yaml:"FallbackPath"`

	// Secret overrides the generated device secret when set.
	Secret     string `yaml:"Secret"`
	SecretFile string `yaml:"SecretFile"`

	// Workplace policy overrides. Zero/empty values keep the contractual
	// defaults. Clock fields are "HH:MM".
	ContractMinutes     int    `yaml:"ContractMinutes"`
	BreakMinutes        int    `yaml:"BreakMinutes"`
	OfficeOpen          string `yaml:"OfficeOpen"`
	OfficeClose         string `yaml:"OfficeClose"`
	LunchStart          string `yaml:"LunchStart"`
	LunchEnd            string `yaml:"LunchEnd"`
	MinWorkForLunch     int    `yaml:"MinWorkForLunch"`
	Checkpoint          string `yaml:"Checkpoint"`
	MinWorkByCheckpoint int    `yaml:"MinWorkByCheckpoint"`
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

func LoadFrom(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return getDefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	defaults := getDefaultConfig()
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaults.DatabasePath
	}
	if cfg.SecretFile == "" {
		cfg.SecretFile = defaults.SecretFile
	}

	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	cfg.FallbackPath = expandHome(cfg.FallbackPath)
	cfg.SecretFile = expandHome(cfg.SecretFile)

	return &cfg, nil
}

func Save(cfg *Config) error {
	configPath := getConfigPath()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0644)
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tornacasa.yaml")
}

func getDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DatabasePath: filepath.Join(home, ".tornacasa", "worklog.db"),
		SecretFile:   filepath.Join(home, ".tornacasa", "secret.key"),
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolveSecret returns the configured secret, falling back to the device
// secret generated and persisted on first use.
func (c *Config) ResolveSecret() (string, error) {
	if c.Secret != "" {
		return c.Secret, nil
	}
	return cryptox.LoadOrCreateSecret(c.SecretFile)
}

// Policy resolves the configured overrides against the contractual
// defaults.
func (c *Config) Policy() (ledger.Policy, error) {
	p := ledger.DefaultPolicy()

	if c.ContractMinutes > 0 {
		p.WorkMinutes = c.ContractMinutes
	}
	if c.BreakMinutes > 0 {
		p.BreakMinutes = c.BreakMinutes
	}
	if c.MinWorkForLunch > 0 {
		p.MinWorkForLunch = c.MinWorkForLunch
	}
	if c.MinWorkByCheckpoint > 0 {
		p.MinWorkByCheckpoint = c.MinWorkByCheckpoint
	}

	clocks := []struct {
		value string
		field string
		dst   *int
	}{
		{c.OfficeOpen, "OfficeOpen", &p.OfficeOpen},
		{c.OfficeClose, "OfficeClose", &p.OfficeClose},
		{c.LunchStart, "LunchStart", &p.LunchStart},
		{c.LunchEnd, "LunchEnd", &p.LunchEnd},
		{c.Checkpoint, "Checkpoint", &p.Checkpoint},
	}
	for _, clock := range clocks {
		if clock.value == "" {
			continue
		}
		v, err := timeutil.ParseClock(clock.value)
		if err != nil {
			return ledger.Policy{}, &ValidationError{Field: clock.field, Message: err.Error()}
		}
		*clock.dst = v
	}

	return p, nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// Validate checks the configuration for common issues
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &ValidationError{Field: "DatabasePath", Message: "Database path is required"}
	}
	if c.Secret == "" && c.SecretFile == "" {
		return &ValidationError{Field: "SecretFile", Message: "A secret or secret file is required"}
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	return nil
}
