package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	yaml "gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Jenkins   JenkinsConfig   `yaml:"jenkins"`
	Ecosystem EcosystemConfig `yaml:"ecosystem"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Breaker   BreakerConfig   `yaml:"breaker"`
	API       APIConfig       `yaml:"api"`
}

// ServerConfig represents the server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"` // Empty slice means allow all origins
	MaxBodySize    int64    `yaml:"max_body_size"`   // Maximum request body size in bytes (default: 1MB)
}

// DatabaseConfig represents the audit database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// JenkinsConfig represents the Jenkins configuration
type JenkinsConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"` // Jenkins username (optional, defaults to token if not provided)
	Token    string `yaml:"token"`
	Timeout  int    `yaml:"timeout"` // Request timeout in seconds (default: 30)
}

// EcosystemConfig holds the base URIs of sibling services passed to every build
type EcosystemConfig struct {
	API   string `yaml:"api"`
	Store string `yaml:"store"`
}

// ExecutorConfig controls how builds map onto Jenkins jobs
type ExecutorConfig struct {
	JobPrefix        string `yaml:"job_prefix"`
	TemplatePath     string `yaml:"template_path"` // Empty means the bundled template
	IncludeContainer *bool  `yaml:"include_container"`
	DestroyAfterStop *bool  `yaml:"destroy_after_stop"`
}

// BreakerConfig tunes the circuit breaker around Jenkins calls
type BreakerConfig struct {
	Threshold        int `yaml:"threshold"`          // Consecutive failures before opening (default: 5)
	Cooldown         int `yaml:"cooldown"`           // Seconds before half-open (default: 30)
	MaxAttempts      int `yaml:"max_attempts"`       // Attempts per call (default: 1)
	BackoffInitialMS int `yaml:"backoff_initial_ms"` // default: 100
	BackoffMaxMS     int `yaml:"backoff_max_ms"`     // default: 5000
}

// APIConfig represents the API configuration
type APIConfig struct {
	Keys []string `yaml:"keys"`
}

// ShouldIncludeContainer reports whether SD_CONTAINER is passed to builds
func (c ExecutorConfig) ShouldIncludeContainer() bool {
	return c.IncludeContainer == nil || *c.IncludeContainer
}

// ShouldDestroyAfterStop reports whether a stopped job is deleted
func (c ExecutorConfig) ShouldDestroyAfterStop() bool {
	return c.DestroyAfterStop == nil || *c.DestroyAfterStop
}

// Load loads the configuration from the given file path
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // Trusted file path input
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	applyEnvVars(config)
	setDefaults(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvVars applies environment variables to the configuration
func applyEnvVars(config *Config) {
	// Server configuration
	if port := os.Getenv("EXECUTOR_JENKINS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("EXECUTOR_JENKINS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Database configuration
	if path := os.Getenv("EXECUTOR_JENKINS_DATABASE_PATH"); path != "" {
		config.Database.Path = path
	}

	// Jenkins configuration
	if url := os.Getenv("EXECUTOR_JENKINS_JENKINS_URL"); url != "" {
		config.Jenkins.URL = url
	}
	if username := os.Getenv("EXECUTOR_JENKINS_JENKINS_USERNAME"); username != "" {
		config.Jenkins.Username = username
	}
	if token := os.Getenv("EXECUTOR_JENKINS_JENKINS_TOKEN"); token != "" {
		config.Jenkins.Token = token
	}
	if timeout := os.Getenv("EXECUTOR_JENKINS_JENKINS_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			config.Jenkins.Timeout = t
		}
	}

	// Ecosystem configuration
	if api := os.Getenv("EXECUTOR_JENKINS_ECOSYSTEM_API"); api != "" {
		config.Ecosystem.API = api
	}
	if store := os.Getenv("EXECUTOR_JENKINS_ECOSYSTEM_STORE"); store != "" {
		config.Ecosystem.Store = store
	}

	if path := os.Getenv("EXECUTOR_JENKINS_TEMPLATE_PATH"); path != "" {
		config.Executor.TemplatePath = path
	}
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.MaxBodySize == 0 {
		config.Server.MaxBodySize = 1 << 20 // 1MB default
	}

	// Database defaults
	if config.Database.Path == "" {
		config.Database.Path = "./executor-jenkins.db"
	}

	// Jenkins defaults
	if config.Jenkins.Timeout == 0 {
		config.Jenkins.Timeout = 30
	}
	if config.Jenkins.Username == "" {
		// Jenkins API token authentication accepts the token as username
		config.Jenkins.Username = config.Jenkins.Token
	}

	// Executor defaults
	if config.Executor.JobPrefix == "" {
		config.Executor.JobPrefix = "SD-"
	}

	// Breaker defaults
	if config.Breaker.Threshold == 0 {
		config.Breaker.Threshold = 5
	}
	if config.Breaker.Cooldown == 0 {
		config.Breaker.Cooldown = 30
	}
	if config.Breaker.MaxAttempts == 0 {
		config.Breaker.MaxAttempts = 1
	}
	if config.Breaker.BackoffInitialMS == 0 {
		config.Breaker.BackoffInitialMS = 100
	}
	if config.Breaker.BackoffMaxMS == 0 {
		config.Breaker.BackoffMaxMS = 5000
	}
}

// GetLogLevel returns the log level from the environment
func GetLogLevel() string {
	levelStr := os.Getenv("EXECUTOR_JENKINS_LOG_LEVEL")
	if levelStr == "" {
		return "info"
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if _, ok := validLevels[levelStr]; ok {
		return levelStr
	}

	return "info"
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d (must be between 1 and 65535)", cfg.Server.Port)
	}

	if cfg.Server.MaxBodySize < 0 {
		return fmt.Errorf("invalid server.max_body_size: %d (must be non-negative)", cfg.Server.MaxBodySize)
	}
	if cfg.Server.MaxBodySize > 100<<20 { // 100MB max
		return fmt.Errorf("invalid server.max_body_size: %d (must be less than 100MB)", cfg.Server.MaxBodySize)
	}

	// Validate Jenkins configuration
	if cfg.Jenkins.URL == "" {
		return fmt.Errorf("jenkins.url is required")
	}
	if _, err := url.Parse(cfg.Jenkins.URL); err != nil {
		return fmt.Errorf("invalid jenkins.url: %v", err)
	}
	if cfg.Jenkins.Token == "" {
		return fmt.Errorf("jenkins.token is required")
	}
	if cfg.Jenkins.Timeout < 0 {
		return fmt.Errorf("invalid jenkins.timeout: %d (must be non-negative)", cfg.Jenkins.Timeout)
	}

	// Builds cannot reach the API or the store without these
	if cfg.Ecosystem.API == "" {
		return fmt.Errorf("ecosystem.api is required")
	}
	if cfg.Ecosystem.Store == "" {
		return fmt.Errorf("ecosystem.store is required")
	}

	if cfg.Breaker.Threshold < 0 || cfg.Breaker.Cooldown < 0 || cfg.Breaker.MaxAttempts < 0 {
		return fmt.Errorf("breaker settings must be non-negative")
	}
	if cfg.Breaker.BackoffInitialMS < 0 || cfg.Breaker.BackoffMaxMS < 0 {
		return fmt.Errorf("breaker backoff must be non-negative")
	}

	// Validate API keys
	if len(cfg.API.Keys) == 0 {
		return fmt.Errorf("at least one api.key is required")
	}
	for i, key := range cfg.API.Keys {
		if key == "" {
			return fmt.Errorf("api.keys[%d] cannot be empty", i)
		}
	}

	return nil
}
