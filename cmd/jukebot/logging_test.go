package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jukebot/internal/config"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jukebot.log")
	l, closer, err := newLogger(config.GeneralConfig{LogLevel: "warn", LogFormat: "json", LogFile: path})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	l.Info("hidden")
	l.Warn("speaker unreachable", "device", "10.0.0.2")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, `"device":"10.0.0.2"`) || !strings.Contains(out, `"app":"jukebot"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}
