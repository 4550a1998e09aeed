package store

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CatalogConfig names the question catalog source.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig holds the completion store location and credentials. Both
// values are opaque to the core: they are handed to the HTTP client as-is.
type RemoteConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token,omitempty"`
	File           string `yaml:"file"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// PickConfig holds selection defaults.
type PickConfig struct {
	DefaultCount int  `yaml:"default_count"`
	Balanced     bool `yaml:"balanced"`
}

// Config holds drill configuration.
type Config struct {
	Version string        `yaml:"version"`
	Catalog CatalogConfig `yaml:"catalog,omitempty"`
	Remote  RemoteConfig  `yaml:"remote,omitempty"`
	Pick    PickConfig    `yaml:"pick,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Remote: RemoteConfig{
			File:           "completed.json",
			TimeoutSeconds: 30,
		},
		Pick: PickConfig{
			DefaultCount: 10,
		},
	}
}

// Store represents a loaded DRILL_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the DRILL_HOME path, respecting the DRILL_HOME env var.
func Home() string {
	if h := os.Getenv("DRILL_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".drill")
	}
	return filepath.Join(home, ".drill")
}

// Init creates the DRILL_HOME directory with a default config.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("DRILL_HOME already exists at %s (use --force to reinitialize)", home)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads and validates an existing DRILL_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read DRILL_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	data, err := yaml.Marshal(s.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(s.Home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "remote.url").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "catalog.path":
		s.Config.Catalog.Path = value
	case "remote.url":
		s.Config.Remote.URL = value
	case "remote.token":
		s.Config.Remote.Token = value
	case "remote.file":
		if value == "" {
			return fmt.Errorf("remote.file cannot be empty")
		}
		s.Config.Remote.File = value
	case "remote.timeout_seconds":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("remote.timeout_seconds must be a positive integer")
		}
		s.Config.Remote.TimeoutSeconds = n
	case "pick.default_count":
		var n int
		if _, err := fmt.Sscanf(value, "%d", &n); err != nil || n < 1 {
			return fmt.Errorf("pick.default_count must be a positive integer")
		}
		s.Config.Pick.DefaultCount = n
	case "pick.balanced":
		s.Config.Pick.Balanced = value == "true"
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: catalog.path, remote.url, remote.token, remote.file, remote.timeout_seconds, pick.default_count, pick.balanced", key)
	}
	return s.SaveConfig()
}

// GetConfigValue reads a config value by dot-path key.
func (s *Store) GetConfigValue(key string) (string, error) {
	switch key {
	case "catalog.path":
		return s.Config.Catalog.Path, nil
	case "remote.url":
		return s.Config.Remote.URL, nil
	case "remote.token":
		return s.Config.Remote.Token, nil
	case "remote.file":
		return s.Config.Remote.File, nil
	case "remote.timeout_seconds":
		return fmt.Sprintf("%d", s.Config.Remote.TimeoutSeconds), nil
	case "pick.default_count":
		return fmt.Sprintf("%d", s.Config.Pick.DefaultCount), nil
	case "pick.balanced":
		return fmt.Sprintf("%t", s.Config.Pick.Balanced), nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Path resolves a path within DRILL_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// CheckHealth verifies DRILL_HOME integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	info, err := os.Stat(home)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("missing DRILL_HOME: %s", home)})
		return issues
	}
	if !info.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", home)})
		return issues
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	} else {
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		} else {
			if cfg.Catalog.Path == "" {
				issues = append(issues, Issue{"warning", "catalog.path is not set — run 'drill config set catalog.path <file>'"})
			} else if _, err := os.Stat(cfg.Catalog.Path); err != nil {
				issues = append(issues, Issue{"error", fmt.Sprintf("catalog file not found: %s", cfg.Catalog.Path)})
			}
			if cfg.Remote.URL == "" {
				issues = append(issues, Issue{"warning", "remote.url is not set — completions cannot sync"})
			}
		}
	}

	pendingPath := filepath.Join(home, "pending.yaml")
	if data, err := os.ReadFile(pendingPath); err == nil {
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("pending.yaml is not valid YAML: %v", err)})
		}
	}

	return issues
}

// FixIssues attempts to repair simple issues in DRILL_HOME.
func FixIssues(home string) []string {
	var fixed []string

	if _, err := os.Stat(home); err != nil {
		if err := os.MkdirAll(home, 0755); err == nil {
			fixed = append(fixed, "recreated missing DRILL_HOME directory")
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		cfg := DefaultConfig()
		data, _ := yaml.Marshal(cfg)
		if os.WriteFile(cfgPath, data, 0644) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	return fixed
}
