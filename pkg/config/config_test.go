package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testConfig struct {
	Name    string        `yaml:"name" default:"unnamed"`
	Port    int           `yaml:"port" default:"8080"`
	Timeout time.Duration `yaml:"timeout" default:"5s"`
	Enabled bool          `yaml:"enabled" default:"true"`
}

func (c *testConfig) Validate() error {
	if c.Port > 65535 {
		return errors.New("port out of range")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "vault")
	p := writeFile(t, "name: ${CONFIG_TEST_NAME}\nenabled: false\n")

	var cfg testConfig
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "vault" {
		t.Errorf("name = %q, want expanded value", cfg.Name)
	}
	if cfg.Port != 8080 || cfg.Timeout != 5*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Enabled {
		t.Error("explicit false should override default true")
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeFile(t, "port: 70000\n")
	var cfg testConfig
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	p := writeFile(t, "port: [1, 2\n")
	var cfg testConfig
	if err := Load(p, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	var cfg testConfig
	if err := LoadWithDefaults(missing, "", &cfg); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Name != "unnamed" || !cfg.Enabled {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	fallback := writeFile(t, "name: fallback\n")
	cfg = testConfig{}
	if err := LoadWithDefaults(missing, fallback, &cfg); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("name = %q, want fallback file value", cfg.Name)
	}
}

func TestMustLoad_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLoad should panic on a missing file")
		}
	}()
	var cfg testConfig
	MustLoad(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
}
