package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		config  Config
		wantErr bool
	}{
		{DefaultConfig(), false},
		{Config{Level: "debug", Format: "json"}, false},
		{Config{}, false},
		{Config{Level: "loud"}, true},
		{Config{Format: "xml"}, true},
	}
	for _, tt := range tests {
		err := tt.config.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.config, err, tt.wantErr)
		}
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpa.log")
	logger, err := NewLogger(Config{Level: "debug", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("drawing loaded")
	logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"drawing loaded"`) || !strings.Contains(out, `"service":"mpa"`) {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpa.log")
	logger, err := NewLogger(Config{Level: "warn", OutputPath: path})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Errorf("level not applied: %q", data)
	}
}
