package config

import (
	"os"
	"path/filepath"
	"testing"
)

func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("Unsetenv(%s) error = %v", key, err)
	}
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "TEXTFILL_DOTENV_SEED=42\nTEXTFILL_DOTENV_PROFILE=prod\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	unsetForTest(t, "TEXTFILL_DOTENV_SEED")
	t.Setenv("TEXTFILL_DOTENV_PROFILE", "test")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("TEXTFILL_DOTENV_SEED"); got != "42" {
		t.Fatalf("TEXTFILL_DOTENV_SEED = %q", got)
	}
	if got := os.Getenv("TEXTFILL_DOTENV_PROFILE"); got != "test" {
		t.Fatalf("TEXTFILL_DOTENV_PROFILE = %q, want existing value", got)
	}
}

func TestLoadDotEnvSkipsMissingFiles(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
}

func TestLoadDotEnvRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.env")
	if err := os.WriteFile(path, []byte("TEXTFILL_BROKEN='unterminated\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	unsetForTest(t, "TEXTFILL_BROKEN")
	if err := LoadDotEnv(path); err == nil {
		t.Fatal("expected malformed file to fail")
	}
}
