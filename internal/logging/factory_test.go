package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != INFO {
		t.Errorf("Expected Level=INFO, got %v", config.Level)
	}
	if !config.EnableConsole {
		t.Error("Expected EnableConsole=true")
	}
	if !config.RedactSensitive {
		t.Error("Expected RedactSensitive=true")
	}
	if config.EnableTimestamp {
		t.Error("Expected EnableTimestamp=false")
	}
	if config.MaxFileSize != 100*1024*1024 {
		t.Errorf("Expected MaxFileSize=104857600, got %v", config.MaxFileSize)
	}
}

func TestNewLogger_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	config := LogConfig{
		Level:         INFO,
		EnableConsole: true,
		Console:       &buf,
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() {
		logger.Close()
	})

	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if _, ok := logger.(*ConsoleLogger); !ok {
		t.Errorf("Expected ConsoleLogger, got %T", logger)
	}
	logger.Info("scan started")
	if !strings.Contains(buf.String(), "scan started") {
		t.Errorf("console output = %q", buf.String())
	}
}

func TestNewLogger_FileOnly(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "test.log")

	config := LogConfig{
		Level:         INFO,
		EnableConsole: false,
		OutputFile:    logPath,
		MaxFileSize:   1024,
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() {
		logger.Close()
	})

	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if _, ok := logger.(*FileLogger); !ok {
		t.Errorf("Expected FileLogger, got %T", logger)
	}

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestNewLogger_Both(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "test.log")

	config := LogConfig{
		Level:         INFO,
		EnableConsole: true,
		Console:       &bytes.Buffer{},
		OutputFile:    logPath,
		MaxFileSize:   1024,
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() {
		logger.Close()
	})

	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if _, ok := logger.(*MultiLogger); !ok {
		t.Errorf("Expected MultiLogger, got %T", logger)
	}
}

func TestNewLogger_NoOp(t *testing.T) {
	config := LogConfig{
		Level:         INFO,
		EnableConsole: false,
		OutputFile:    "",
	}

	logger, err := NewLogger(config)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() {
		logger.Close()
	})

	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if _, ok := logger.(*NoOpLogger); !ok {
		t.Errorf("Expected NoOpLogger, got %T", logger)
	}
}

func TestNewLogger_InvalidPath(t *testing.T) {
	// A regular file as a parent directory fails even for root.
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to create parent file: %v", err)
	}

	config := LogConfig{
		Level:         INFO,
		EnableConsole: false,
		OutputFile:    filepath.Join(parent, "x.log"),
	}

	_, err := NewLogger(config)
	if err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestNewDebugLoggerWithTransport(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "test.log")

	config := LogConfig{
		Level:         DEBUG,
		EnableConsole: false,
		OutputFile:    logPath,
		EnableDebug:   true,
	}

	logger, transport, err := NewDebugLoggerWithTransport(config)
	if err != nil {
		t.Fatalf("NewDebugLoggerWithTransport() error = %v", err)
	}
	t.Cleanup(func() {
		logger.Close()
	})

	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if transport == nil {
		t.Fatal("DebugTransport is nil")
	}
}

func TestNewDebugLoggerWithTransport_NoDebug(t *testing.T) {
	config := LogConfig{
		Level:         INFO,
		EnableConsole: true,
		Console:       &bytes.Buffer{},
		EnableDebug:   false,
	}

	logger, transport, err := NewDebugLoggerWithTransport(config)
	if err != nil {
		t.Fatalf("NewDebugLoggerWithTransport() error = %v", err)
	}
	t.Cleanup(func() {
		logger.Close()
	})

	if logger == nil {
		t.Fatal("Logger is nil")
	}

	if transport != nil {
		t.Error("Expected nil DebugTransport when EnableDebug=false")
	}
}

func TestDebugTransport_LogsRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	logger := NewConsoleLogger(ConsoleLoggerConfig{Writer: &buf, Level: DEBUG})
	client := &http.Client{Transport: NewDebugTransport(nil, logger)}

	resp, err := client.Get(server.URL + "/drive/v3/files?pageToken=abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, "HTTP request") || !strings.Contains(out, "status=418") {
		t.Errorf("debug output = %q", out)
	}
}
