package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dynophore/internal/frames"
)

func validConfig() Config {
	r, _ := frames.NewRange(1, 10, 1)
	return Config{
		Frames:    r,
		InputDir:  "input_mae_files",
		WorkDir:   ".",
		Workers:   2,
		BatchSize: 4,
		Protocol:  DefaultProtocol(),
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input dir", func(c *Config) { c.InputDir = "" }},
		{"no work dir", func(c *Config) { c.WorkDir = "" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }},
		{"negative retries", func(c *Config) { c.Retries = -1 }},
		{"bad protocol", func(c *Config) { c.Protocol.Features = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(&c)
			err := c.Validate()
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestLoadProtocol_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	body := "ph: 6.8\nfeatures: 5\nhost: cluster:4\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadProtocol(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultProtocol()
	want.PH = 6.8
	want.Features = 5
	want.Host = "cluster:4"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("protocol mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadProtocol_Missing(t *testing.T) {
	_, err := LoadProtocol(filepath.Join(t.TempDir(), "none.yaml"))
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestLoadProtocol_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	if err := os.WriteFile(path, []byte("ph: 22.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProtocol(path); err == nil {
		t.Error("expected error for out-of-range ph")
	}
}

func TestPoolSize(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 1, 4: 2, 9: 4}
	for cores, want := range cases {
		if got := PoolSize(cores); got != want {
			t.Errorf("PoolSize(%d) = %d, want %d", cores, got, want)
		}
	}
}
