package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/types"
	"github.com/dl-alexandre/gdmirror/internal/utils"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "GDMIRROR_"
)

// Config holds application configuration
type Config struct {
	// DefaultProfile is the credentials profile used when --profile is not given
	DefaultProfile string `json:"defaultProfile"`

	// DefaultOutputFormat is the default output format (json, table)
	DefaultOutputFormat types.OutputFormat `json:"defaultOutputFormat"`

	// CredentialsFile is a service account or authorized-user JSON key.
	// Empty means: stored profile, then application default credentials.
	CredentialsFile string `json:"credentialsFile,omitempty"`

	// MaxRetries is the maximum number of retries for transient API failures
	MaxRetries int `json:"maxRetries"`

	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	// RequestTimeout bounds a single metadata request in seconds
	RequestTimeout int `json:"requestTimeout"`

	// PageSize is the files.list page size
	PageSize int `json:"pageSize"`

	// ProgressInterval is the progress sampling interval in milliseconds
	ProgressInterval int `json:"progressInterval"`

	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel string `json:"logLevel"`

	// ColorOutput enables ANSI colors on the console
	ColorOutput bool `json:"colorOutput"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile:      "default",
		DefaultOutputFormat: types.OutputFormatTable,
		MaxRetries:          utils.DefaultMaxRetries,
		RetryBaseDelay:      utils.DefaultRetryDelayMs,
		RequestTimeout:      60,
		PageSize:            utils.DefaultPageSize,
		ProgressInterval:    utils.DefaultProgressIntervalMs,
		LogLevel:            "normal",
		ColorOutput:         true,
	}
}

// Load loads configuration with precedence: env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv(EnvPrefix + "DEFAULT_PROFILE"); v != "" {
		c.DefaultProfile = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		c.DefaultOutputFormat = types.OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	setInt(&c.MaxRetries, EnvPrefix+"MAX_RETRIES")
	setInt(&c.RetryBaseDelay, EnvPrefix+"RETRY_BASE_DELAY")
	setInt(&c.RequestTimeout, EnvPrefix+"REQUEST_TIMEOUT")
	setInt(&c.PageSize, EnvPrefix+"PAGE_SIZE")
	setInt(&c.ProgressInterval, EnvPrefix+"PROGRESS_INTERVAL")
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvPrefix + "COLOR_OUTPUT"); v != "" {
		c.ColorOutput = parseBool(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Save writes the configuration to the default config path
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo validates and writes the configuration to path
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultOutputFormat != types.OutputFormatJSON &&
		c.DefaultOutputFormat != types.OutputFormatTable {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'table')", c.DefaultOutputFormat)
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}

	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}

	if c.RequestTimeout < 1 || c.RequestTimeout > 3600 {
		return fmt.Errorf("request timeout must be between 1 and 3600 seconds, got: %d", c.RequestTimeout)
	}

	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("page size must be between 1 and 1000, got: %d", c.PageSize)
	}

	if c.ProgressInterval < 50 || c.ProgressInterval > 60000 {
		return fmt.Errorf("progress interval must be between 50ms and 60000ms, got: %d", c.ProgressInterval)
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
}

// Set assigns a config value by its JSON key
func (c *Config) Set(key, value string) error {
	next := *c
	var err error
	atoi := func(dst *int) {
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			err = fmt.Errorf("%s must be an integer: %w", key, convErr)
			return
		}
		*dst = n
	}

	switch key {
	case "defaultProfile":
		next.DefaultProfile = value
	case "defaultOutputFormat":
		next.DefaultOutputFormat = types.OutputFormat(value)
	case "credentialsFile":
		next.CredentialsFile = value
	case "maxRetries":
		atoi(&next.MaxRetries)
	case "retryBaseDelay":
		atoi(&next.RetryBaseDelay)
	case "requestTimeout":
		atoi(&next.RequestTimeout)
	case "pageSize":
		atoi(&next.PageSize)
	case "progressInterval":
		atoi(&next.ProgressInterval)
	case "logLevel":
		next.LogLevel = value
	case "colorOutput":
		next.ColorOutput = parseBool(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	// rejected values never reach the receiver
	*c = next
	return nil
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// GetRequestTimeout returns the request timeout as a duration
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetProgressInterval returns the progress sampling interval as a duration
func (c *Config) GetProgressInterval() time.Duration {
	return time.Duration(c.ProgressInterval) * time.Millisecond
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "gdmirror"), nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
