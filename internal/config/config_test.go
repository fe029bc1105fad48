package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runtime.ContextWindow != 128000 {
		t.Errorf("ContextWindow = %d, want 128000", cfg.Runtime.ContextWindow)
	}
	if cfg.Bridge.Port != 7777 {
		t.Errorf("Bridge.Port = %d, want 7777", cfg.Bridge.Port)
	}
	if cfg.Bridge.CommandTimeoutMS != 30000 {
		t.Errorf("Bridge.CommandTimeoutMS = %d, want 30000", cfg.Bridge.CommandTimeoutMS)
	}
	if cfg.Memory.DBPath == "" {
		t.Error("Memory.DBPath should have a default")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"provider": {"model": "gpt-4o"}, "bridge": {"port": 8888}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VALET_CONTEXT_WINDOW", "200000")
	t.Setenv("VALET_MEMORY_AUTO_DISTILL", "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", cfg.Provider.Model)
	}
	if cfg.Bridge.Port != 8888 {
		t.Errorf("Bridge.Port = %d, want 8888", cfg.Bridge.Port)
	}
	if cfg.Runtime.ContextWindow != 200000 {
		t.Errorf("ContextWindow = %d, want 200000 (env override)", cfg.Runtime.ContextWindow)
	}
	if !cfg.Memory.AutoDistill {
		t.Error("Memory.AutoDistill should be enabled by env override")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
