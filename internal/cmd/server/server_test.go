package server

import (
	"flag"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("ParseConfig() http addr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.DBPath != filepath.Join("data", "ediary.db") {
		t.Fatalf("ParseConfig() db path = %q, want default", cfg.DBPath)
	}
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("EDIARY_HTTP_ADDR", ":9999")
	t.Setenv("EDIARY_DB_PATH", "/tmp/diary.db")
	t.Setenv("EDIARY_ADMIN_API_KEY", "super-secret")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("ParseConfig() http addr = %q, want :9999", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/tmp/diary.db" {
		t.Fatalf("ParseConfig() db path = %q", cfg.DBPath)
	}
	if cfg.SuperAdminKey != "super-secret" {
		t.Fatalf("ParseConfig() super admin key = %q", cfg.SuperAdminKey)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("EDIARY_HTTP_ADDR", ":9999")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-http-addr", ":7777", "-db-path", "custom.db"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.HTTPAddr != ":7777" {
		t.Fatalf("ParseConfig() http addr = %q, want flag value", cfg.HTTPAddr)
	}
	if cfg.DBPath != "custom.db" {
		t.Fatalf("ParseConfig() db path = %q, want flag value", cfg.DBPath)
	}
}
