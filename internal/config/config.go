// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration parameters for the application.
type Config struct {
	Jira   JiraConfig
	GitHub GitHubConfig
	Engine EngineConfig
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string

	// DefectType is the remote issue type name used for defects ("Bug" or "Defect")
	DefectType string

	// RequestsPerSecond paces calls to the JIRA API
	RequestsPerSecond float64

	// Timeout bounds a single HTTP request
	Timeout time.Duration
}

// GitHubConfig holds GitHub specific configuration for reading commands from issue comments.
type GitHubConfig struct {
	Token  string
	Domain string

	// CommandPrefix marks comment lines that carry commands (e.g. "/jira")
	CommandPrefix string
}

// EngineConfig holds execution engine tuning.
type EngineConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PoolSize       int
}

// LoadConfig loads configuration from environment variables and, when
// configFile is not empty, from that file. Environment variables win.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("jira.defect_type", "Bug")
	v.SetDefault("jira.requests_per_second", 10.0)
	v.SetDefault("jira.timeout", 30*time.Second)
	v.SetDefault("github.domain", "github.com")
	v.SetDefault("github.command_prefix", "/jira")
	v.SetDefault("engine.max_attempts", 4)
	v.SetDefault("engine.initial_backoff", 500*time.Millisecond)
	v.SetDefault("engine.max_backoff", 10*time.Second)
	v.SetDefault("engine.pool_size", 4)

	// Map specific environment variables
	v.BindEnv("jira.url", "JIRA_URL")
	v.BindEnv("jira.username", "JIRA_USERNAME")
	v.BindEnv("jira.token", "JIRA_TOKEN")
	v.BindEnv("jira.defect_type", "JIRA_DEFECT_TYPE")
	v.BindEnv("jira.requests_per_second", "JIRABOT_REQUESTS_PER_SECOND")
	v.BindEnv("jira.timeout", "JIRABOT_TIMEOUT")
	v.BindEnv("github.token", "GITHUB_TOKEN")
	v.BindEnv("github.domain", "GITHUB_DOMAIN")
	v.BindEnv("github.command_prefix", "JIRABOT_COMMAND_PREFIX")
	v.BindEnv("engine.max_attempts", "JIRABOT_MAX_ATTEMPTS")
	v.BindEnv("engine.initial_backoff", "JIRABOT_INITIAL_BACKOFF")
	v.BindEnv("engine.max_backoff", "JIRABOT_MAX_BACKOFF")
	v.BindEnv("engine.pool_size", "JIRABOT_POOL_SIZE")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{
		Jira: JiraConfig{
			URL:               v.GetString("jira.url"),
			Username:          v.GetString("jira.username"),
			Token:             v.GetString("jira.token"),
			DefectType:        v.GetString("jira.defect_type"),
			RequestsPerSecond: v.GetFloat64("jira.requests_per_second"),
			Timeout:           v.GetDuration("jira.timeout"),
		},
		GitHub: GitHubConfig{
			Token:         v.GetString("github.token"),
			Domain:        v.GetString("github.domain"),
			CommandPrefix: v.GetString("github.command_prefix"),
		},
		Engine: EngineConfig{
			MaxAttempts:    v.GetInt("engine.max_attempts"),
			InitialBackoff: v.GetDuration("engine.initial_backoff"),
			MaxBackoff:     v.GetDuration("engine.max_backoff"),
			PoolSize:       v.GetInt("engine.pool_size"),
		},
	}

	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// validateConfig ensures engine tuning values and the command prefix are usable.
func validateConfig(config *Config) error {
	var problems []string

	if config.Engine.MaxAttempts < 1 {
		problems = append(problems, "max_attempts must be at least 1")
	}
	if config.Engine.PoolSize < 1 {
		problems = append(problems, "pool_size must be at least 1")
	}
	if config.Engine.InitialBackoff <= 0 {
		problems = append(problems, "initial_backoff must be positive")
	}
	if config.Engine.MaxBackoff < config.Engine.InitialBackoff {
		problems = append(problems, "max_backoff must not be below initial_backoff")
	}
	if config.Jira.RequestsPerSecond <= 0 {
		problems = append(problems, "requests_per_second must be positive")
	}
	if strings.TrimSpace(config.GitHub.CommandPrefix) == "" {
		problems = append(problems, "command_prefix must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration. A username is
// optional: without one the token is sent as a bearer token.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}

// ValidateGitHubConfig validates the configuration needed to read commands from GitHub.
func ValidateGitHubConfig(config *Config) error {
	if config.GitHub.Token == "" {
		return fmt.Errorf("missing required environment variables: [GITHUB_TOKEN]")
	}
	return nil
}
