package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeepMerge_UserValueWins(t *testing.T) {
	source := map[string]any{"nmap": map[string]any{"min_rate": 1000, "max_retries": 2}}
	override := map[string]any{"nmap": map[string]any{"min_rate": 500}}

	merged := deepMerge(source, override)
	nmap := merged["nmap"].(map[string]any)
	if nmap["min_rate"] != 500 {
		t.Errorf("deepMerge() min_rate = %v, want 500 (user override should win)", nmap["min_rate"])
	}
	if nmap["max_retries"] != 2 {
		t.Errorf("deepMerge() max_retries = %v, want 2 (kept from template)", nmap["max_retries"])
	}
}

func TestDeepMerge_AddsNewTemplateKeys(t *testing.T) {
	source := map[string]any{"a": 1, "b": 2}
	override := map[string]any{"b": 3}

	merged := deepMerge(source, override)
	if merged["a"] != 1 {
		t.Errorf("deepMerge() a = %v, want 1", merged["a"])
	}
	if merged["b"] != 3 {
		t.Errorf("deepMerge() b = %v, want 3", merged["b"])
	}
}

func TestConfig_Publish_WritesTemplateOnce(t *testing.T) {
	dir := t.TempDir()
	c := &Config{
		v:                 nil,
		defaultDestDir:    dir,
		defaultConfigPath: filepath.Join(dir, templateName),
	}
	if err := c.Publish(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := os.Stat(c.defaultConfigPath); err != nil {
		t.Fatalf("Publish() did not write config: %v", err)
	}

	// modify it, then Publish again should be a no-op.
	if err := os.WriteFile(c.defaultConfigPath, []byte("custom: true\n"), 0o644); err != nil {
		t.Fatalf("write custom content: %v", err)
	}
	if err := c.Publish(); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}
	data, err := os.ReadFile(c.defaultConfigPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != "custom: true\n" {
		t.Error("Publish() overwrote an existing config file, want no-op when already present")
	}
}

func TestConfig_Use_MissingFile(t *testing.T) {
	c := &Config{v: nil}
	if err := c.Use(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Use() error = nil, want error for missing file")
	}
}
