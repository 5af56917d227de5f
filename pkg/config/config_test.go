package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	path := writeFile(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	var got sample
	if err := Load(path, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "from-env" || got.Port != 9000 {
		t.Errorf("got %+v", got)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "name: x\n")

	got := sample{Port: 8080}
	if err := Load(path, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Port != 8080 {
		t.Errorf("port = %d, want default 8080", got.Port)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeFile(t, "port: 0\n")

	var got sample
	if err := Load(path, &got); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var got sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &got); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	got := sample{Name: "default", Port: 1}
	read, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &got)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if read {
		t.Error("read = true for missing file")
	}
	if got.Name != "default" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestLoadOptional_MissingFileStillValidates(t *testing.T) {
	var got sample
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &got); err == nil {
		t.Fatal("expected validation error on zero defaults")
	}
}

func TestLoadOptional_ReadsFile(t *testing.T) {
	path := writeFile(t, "port: 7000\n")
	var got sample
	read, err := LoadOptional(path, &got)
	if err != nil || !read {
		t.Fatalf("read=%v err=%v", read, err)
	}
	if got.Port != 7000 {
		t.Errorf("port = %d", got.Port)
	}
}
