// Package config loads and merges NetHawk's YAML configuration file, the Go
// equivalent of the source system's Box-backed dotted-path config object.
//
// The resolution order mirrors the original: a custom path set via Use()
// wins outright; otherwise the default lives at $HOME/.nethawk/config.yaml,
// where $HOME is computed against $SUDO_USER or $USER so that running under
// sudo still resolves to the invoking user's home directory rather than
// root's.
package config

import (
	"embed"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed templates/config.yaml
var templateFS embed.FS

const (
	templateName = "config.yaml"
	dirName      = ".nethawk"
)

// Config is a dotted-path accessor over a merged YAML document, backed by
// viper for dotted-path lookup, with spf13/cast for type coercion.
type Config struct {
	v                 *viper.Viper
	customPath        string
	defaultDestDir    string
	defaultConfigPath string
}

// New loads the config at its default path, publishing the packaged template
// first if nothing exists there yet.
func New() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, fmt.Errorf("determine home directory: %w", err)
	}
	destDir := filepath.Join(home, dirName)
	c := &Config{
		v:                 viper.New(),
		defaultDestDir:    destDir,
		defaultConfigPath: filepath.Join(destDir, templateName),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// homeDir resolves ~$SUDO_USER (falling back to $USER) the way the original
// tool does, so configuration under sudo still lands in the real user's home.
func homeDir() (string, error) {
	name := os.Getenv("SUDO_USER")
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		return os.UserHomeDir()
	}
	u, err := user.Lookup(name)
	if err != nil {
		return os.UserHomeDir()
	}
	return u.HomeDir, nil
}

// Path returns the config file currently in effect.
func (c *Config) Path() string {
	if c.customPath != "" {
		return c.customPath
	}
	return c.defaultConfigPath
}

func (c *Config) load() error {
	if _, err := os.Stat(c.Path()); os.IsNotExist(err) {
		if err := c.Publish(); err != nil {
			return err
		}
	}
	c.v.SetConfigFile(c.Path())
	c.v.SetConfigType("yaml")
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", c.Path(), err)
	}
	return nil
}

// Publish copies the packaged default template to the default path if it
// does not already exist there.
func (c *Config) Publish() error {
	if err := os.MkdirAll(c.defaultDestDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if _, err := os.Stat(c.defaultConfigPath); err == nil {
		return nil // already present
	}
	data, err := templateFS.ReadFile(filepath.Join("templates", templateName))
	if err != nil {
		return fmt.Errorf("read packaged template: %w", err)
	}
	return os.WriteFile(c.defaultConfigPath, data, 0o644)
}

// Republish deep-merges the packaged template into the current config,
// preferring the user's existing values, and writes the result back.
func (c *Config) Republish() error {
	templateBytes, err := templateFS.ReadFile(filepath.Join("templates", templateName))
	if err != nil {
		return fmt.Errorf("read packaged template: %w", err)
	}
	var template map[string]any
	if err := yaml.Unmarshal(templateBytes, &template); err != nil {
		return fmt.Errorf("parse packaged template: %w", err)
	}

	currentBytes, err := os.ReadFile(c.Path())
	if err != nil {
		return fmt.Errorf("read current config: %w", err)
	}
	var current map[string]any
	if err := yaml.Unmarshal(currentBytes, &current); err != nil {
		return fmt.Errorf("parse current config: %w", err)
	}

	merged := deepMerge(template, current)

	out, err := yaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	if err := os.WriteFile(c.Path(), out, 0o644); err != nil {
		return fmt.Errorf("write merged config: %w", err)
	}
	return c.load()
}

// deepMerge overlays override onto source, recursing into nested maps and
// otherwise letting override's value win.
func deepMerge(source, override map[string]any) map[string]any {
	result := make(map[string]any, len(source))
	for k, v := range source {
		result[k] = v
	}
	for k, v := range override {
		if sv, ok := result[k]; ok {
			sm, sOK := sv.(map[string]any)
			vm, vOK := v.(map[string]any)
			if sOK && vOK {
				result[k] = deepMerge(sm, vm)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// Use switches the Config to read from a custom path instead of the default.
func (c *Config) Use(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("custom config file not found: %s", path)
	}
	c.customPath = path
	c.v = viper.New()
	c.v.SetConfigFile(path)
	c.v.SetConfigType("yaml")
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read custom config %s: %w", path, err)
	}
	return nil
}

// Get walks a dotted path (e.g. "mongodb.host") and reports whether it was
// found.
func (c *Config) Get(key string) (any, bool) {
	if !c.v.IsSet(key) {
		return nil, false
	}
	return c.v.Get(key), true
}

// GetString is a typed convenience wrapper around Get.
func (c *Config) GetString(key string, def string) string {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	return cast.ToString(v)
}

// GetInt is a typed convenience wrapper around Get.
func (c *Config) GetInt(key string, def int) int {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	return cast.ToInt(v)
}
