package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	s.valid = true
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("CFG_NAME", "site")
	path := writeFile(t, "name: ${CFG_NAME}\nport: ${CFG_PORT:-8081}\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "site" || s.Port != 8081 || !s.valid {
		t.Errorf("sample = %+v", s)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "name: x\nprot: 1\n")
	var s sample
	if err := Load(path, &s); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestLoad_ValidationFails(t *testing.T) {
	path := writeFile(t, "port: 1\n")
	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "name is required") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "defaults"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if s.Name != "defaults" || !s.valid {
		t.Errorf("sample = %+v", s)
	}

	var empty sample
	if err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &empty); err == nil {
		t.Error("defaults are still validated")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CFG_SET", "v")
	t.Setenv("CFG_EMPTY", "")
	got := ExpandEnv("$CFG_SET ${CFG_SET:-d} ${CFG_EMPTY:-d} ${CFG_UNSET}")
	if got != "v v d " {
		t.Errorf("ExpandEnv = %q", got)
	}
}
