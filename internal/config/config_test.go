package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dl-alexandre/gdmirror/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultProfile != "default" {
		t.Errorf("Expected default profile 'default', got '%s'", cfg.DefaultProfile)
	}
	if cfg.DefaultOutputFormat != types.OutputFormatTable {
		t.Errorf("Expected default output format 'table', got '%s'", cfg.DefaultOutputFormat)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.PageSize != 1000 {
		t.Errorf("Expected page size 1000, got %d", cfg.PageSize)
	}
	if cfg.ProgressInterval != 1000 {
		t.Errorf("Expected progress interval 1000, got %d", cfg.ProgressInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
	}{
		{"valid default config", func(c *Config) {}, ""},
		{"invalid output format", func(c *Config) { c.DefaultOutputFormat = "xml" }, "invalid output format"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "max retries"},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }, "max retries"},
		{"retry delay too small", func(c *Config) { c.RetryBaseDelay = 10 }, "retry base delay"},
		{"timeout zero", func(c *Config) { c.RequestTimeout = 0 }, "request timeout"},
		{"page size too large", func(c *Config) { c.PageSize = 5000 }, "page size"},
		{"progress interval too small", func(c *Config) { c.ProgressInterval = 1 }, "progress interval"},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestConfigDurationGetters(t *testing.T) {
	cfg := &Config{RetryBaseDelay: 1500, RequestTimeout: 30, ProgressInterval: 250}

	if d := cfg.GetRetryBaseDelay(); d != 1500*time.Millisecond {
		t.Errorf("GetRetryBaseDelay() = %v", d)
	}
	if d := cfg.GetRequestTimeout(); d != 30*time.Second {
		t.Errorf("GetRequestTimeout() = %v", d)
	}
	if d := cfg.GetProgressInterval(); d != 250*time.Millisecond {
		t.Errorf("GetProgressInterval() = %v", d)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)

	cfg := DefaultConfig()
	cfg.DefaultProfile = "backup"
	cfg.CredentialsFile = "/etc/gdmirror/key.json"
	cfg.PageSize = 200

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 {
		t.Errorf("config file permissions too open: %v", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.DefaultProfile != "backup" || loaded.CredentialsFile != "/etc/gdmirror/key.json" || loaded.PageSize != 200 {
		t.Errorf("loaded config mismatch: %+v", loaded)
	}
}

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.PageSize != DefaultConfig().PageSize {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GDMIRROR_DEFAULT_PROFILE", "env-profile")
	t.Setenv("GDMIRROR_OUTPUT_FORMAT", "json")
	t.Setenv("GDMIRROR_CREDENTIALS_FILE", "/tmp/sa.json")
	t.Setenv("GDMIRROR_MAX_RETRIES", "7")
	t.Setenv("GDMIRROR_PAGE_SIZE", "50")
	t.Setenv("GDMIRROR_PROGRESS_INTERVAL", "500")
	t.Setenv("GDMIRROR_LOG_LEVEL", "debug")
	t.Setenv("GDMIRROR_COLOR_OUTPUT", "off")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.DefaultProfile != "env-profile" {
		t.Errorf("DefaultProfile = %s", cfg.DefaultProfile)
	}
	if cfg.DefaultOutputFormat != types.OutputFormatJSON {
		t.Errorf("DefaultOutputFormat = %s", cfg.DefaultOutputFormat)
	}
	if cfg.CredentialsFile != "/tmp/sa.json" {
		t.Errorf("CredentialsFile = %s", cfg.CredentialsFile)
	}
	if cfg.MaxRetries != 7 || cfg.PageSize != 50 || cfg.ProgressInterval != 500 {
		t.Errorf("numeric overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
	if cfg.ColorOutput {
		t.Error("ColorOutput should be false")
	}
}

func TestConfigSet(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Set("pageSize", "250"); err != nil {
		t.Fatalf("Set(pageSize) error = %v", err)
	}
	if cfg.PageSize != 250 {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if err := cfg.Set("pageSize", "abc"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := cfg.Set("pageSize", "0"); err == nil {
		t.Error("expected validation error for page size 0")
	}
	if err := cfg.Set("nope", "1"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("colorOutput", "no"); err != nil || cfg.ColorOutput {
		t.Errorf("Set(colorOutput) err=%v value=%v", err, cfg.ColorOutput)
	}
}

func TestConfigSet_RejectedValueKeepsConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Set("pageSize", "250"); err != nil {
		t.Fatalf("Set(pageSize) error = %v", err)
	}
	want := *cfg

	for _, tc := range []struct{ key, value string }{
		{"pageSize", "abc"},
		{"pageSize", "5000"},
		{"maxRetries", "-1"},
		{"logLevel", "loud"},
		{"defaultOutputFormat", "yaml"},
	} {
		if err := cfg.Set(tc.key, tc.value); err == nil {
			t.Errorf("Set(%s, %q) expected error", tc.key, tc.value)
		}
		if *cfg != want {
			t.Fatalf("Set(%s, %q) changed config to %+v", tc.key, tc.value, *cfg)
		}
	}

	if err := cfg.Set("maxRetries", "5"); err != nil {
		t.Fatalf("Set(maxRetries) after rejection error = %v", err)
	}
	if cfg.MaxRetries != 5 || cfg.PageSize != 250 {
		t.Errorf("MaxRetries = %d, PageSize = %d", cfg.MaxRetries, cfg.PageSize)
	}
}

func TestGetConfigDirFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GDMIRROR_CONFIG_DIR", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("GetConfigDir() = %s, want %s", got, dir)
	}
}

func TestParseBool(t *testing.T) {
	tests := map[string]bool{
		"true": true, "1": true, "YES": true, " on ": true,
		"false": false, "0": false, "": false, "maybe": false,
	}
	for in, want := range tests {
		if got := parseBool(in); got != want {
			t.Errorf("parseBool(%q) = %v, want %v", in, got, want)
		}
	}
}
