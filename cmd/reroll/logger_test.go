package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npratt/reroll/internal/config"
)

func testRotation() config.LogRotationConfig {
	return config.Default().LogRotation
}

func TestSetupTUILogger_WritesToFile(t *testing.T) {
	tmpDir := t.TempDir()

	result, err := SetupTUILogger(tmpDir, slog.LevelInfo, testRotation())
	if err != nil {
		t.Fatalf("SetupTUILogger failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "reroll-debug.log")
	if result.FilePath != expectedPath {
		t.Errorf("FilePath = %q, want %q", result.FilePath, expectedPath)
	}

	result.Logger.Info("test message", "key", "value")
	if err := result.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(content), "test message") {
		t.Errorf("log file should contain 'test message', got: %s", content)
	}
	if !strings.Contains(string(content), `"key":"value"`) {
		t.Errorf("log file should contain key=value, got: %s", content)
	}
}

func TestSetupTUILogger_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".reroll")

	result, err := SetupTUILogger(dir, slog.LevelInfo, testRotation())
	if err != nil {
		t.Fatalf("SetupTUILogger failed: %v", err)
	}
	result.Logger.Info("hello")
	_ = result.Close()

	if _, err := os.Stat(filepath.Join(dir, debugLogName)); err != nil {
		t.Errorf("debug log not created: %v", err)
	}
}

func TestSetupTUILogger_AppendsToExistingFile(t *testing.T) {
	tmpDir := t.TempDir()

	logPath := filepath.Join(tmpDir, debugLogName)
	if err := os.WriteFile(logPath, []byte("existing content\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result, err := SetupTUILogger(tmpDir, slog.LevelInfo, testRotation())
	if err != nil {
		t.Fatalf("SetupTUILogger failed: %v", err)
	}
	result.Logger.Info("new message")
	_ = result.Close()

	content, _ := os.ReadFile(logPath)
	if !strings.Contains(string(content), "existing content") {
		t.Error("should preserve existing content")
	}
	if !strings.Contains(string(content), "new message") {
		t.Error("should append new message")
	}
}

func TestSetupTUILogger_RespectsLogLevel(t *testing.T) {
	tmpDir := t.TempDir()

	result, err := SetupTUILogger(tmpDir, slog.LevelWarn, testRotation())
	if err != nil {
		t.Fatalf("SetupTUILogger failed: %v", err)
	}

	result.Logger.Info("info message")
	result.Logger.Warn("warn message")
	_ = result.Close()

	content, _ := os.ReadFile(result.FilePath)
	if strings.Contains(string(content), "info message") {
		t.Error("INFO message should be filtered out at WARN level")
	}
	if !strings.Contains(string(content), "warn message") {
		t.Error("WARN message should appear")
	}
}

func TestSetupTUILoggerWithWriter_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := SetupTUILoggerWithWriter(&buf, slog.LevelInfo)
	logger.Info("test message", "foo", "bar")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("output should contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"foo":"bar"`) {
		t.Errorf("output should contain foo=bar, got: %s", output)
	}
}

func TestTUILoggerResult_CloseWithoutFile(t *testing.T) {
	r := &TUILoggerResult{}
	if err := r.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
