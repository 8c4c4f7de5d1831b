package config

import (
	"os"
	"path/filepath"
	"testing"

	"tasktimer/internal/pomodoro"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file written: %v", err)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9999\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Pomodoro.WorkMinutes != 25 {
		t.Errorf("expected default work minutes, got %d", cfg.Pomodoro.WorkMinutes)
	}
	if cfg.Database.Path != "tasktimer.db" {
		t.Errorf("expected default database path, got %s", cfg.Database.Path)
	}
}

func TestLoad_ClampsPomodoroSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("pomodoro:\n  work_minutes: 200\n  short_break_minutes: 5\n  long_break_minutes: 15\n  sessions_until_long_break: 4\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pomodoro.WorkMinutes != pomodoro.MaxWorkMinutes {
		t.Errorf("expected work minutes clamped to %d, got %d", pomodoro.MaxWorkMinutes, cfg.Pomodoro.WorkMinutes)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Server.Port = 1234
	cfg.Pomodoro.WorkMinutes = 50
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.Port != 1234 || loaded.Pomodoro.WorkMinutes != 50 {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}
