package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV")
	result := getenv("TEST_GETENV", "default")
	if result != "default" {
		t.Errorf("Expected default value 'default', got '%s'", result)
	}

	// Test with set environment variable
	os.Setenv("TEST_GETENV", "test-value")
	result = getenv("TEST_GETENV", "default")
	if result != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV")
}

func TestGetenvInt(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV_INT")
	result := getenvInt("TEST_GETENV_INT", 42)
	if result != 42 {
		t.Errorf("Expected default value 42, got %d", result)
	}

	// Test with valid integer
	os.Setenv("TEST_GETENV_INT", "100")
	result = getenvInt("TEST_GETENV_INT", 42)
	if result != 100 {
		t.Errorf("Expected 100, got %d", result)
	}

	// Test with invalid integer
	os.Setenv("TEST_GETENV_INT", "not-an-int")
	result = getenvInt("TEST_GETENV_INT", 42)
	if result != 42 {
		t.Errorf("Expected default value 42, got %d", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV_INT")
}

func TestGetenvBool(t *testing.T) {
	// Test with empty environment variable
	os.Unsetenv("TEST_GETENV_BOOL")
	result := getenvBool("TEST_GETENV_BOOL", true)
	if result != true {
		t.Errorf("Expected default value true, got %v", result)
	}

	// Test with valid boolean (true)
	os.Setenv("TEST_GETENV_BOOL", "true")
	result = getenvBool("TEST_GETENV_BOOL", false)
	if result != true {
		t.Errorf("Expected true, got %v", result)
	}

	// Test with valid boolean (false)
	os.Setenv("TEST_GETENV_BOOL", "false")
	result = getenvBool("TEST_GETENV_BOOL", true)
	if result != false {
		t.Errorf("Expected false, got %v", result)
	}

	// Test with invalid boolean
	os.Setenv("TEST_GETENV_BOOL", "not-a-bool")
	result = getenvBool("TEST_GETENV_BOOL", true)
	if result != true {
		t.Errorf("Expected default value true, got %v", result)
	}

	// Clean up
	os.Unsetenv("TEST_GETENV_BOOL")
}

func TestLoad(t *testing.T) {
	for _, env := range []string{
		"TUTORLY_API_URL", "TUTORLY_STORE", "TUTORLY_STORE_PATH",
		"TUTORLY_HTTP_TIMEOUT_SECONDS", "TUTORLY_EXPORT_MAX_ATTEMPTS",
		"SFTP_HOST", "SFTP_PORT", "SFTP_USER", "SFTP_PASS", "SFTP_DIR",
		"SFTP_KNOWN_HOSTS", "SFTP_INSECURE_IGNORE_HOSTKEY", "MOCKAPI_ADDR",
	} {
		t.Setenv(env, "")
	}

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.APIURL != "http://127.0.0.1:8000" {
		t.Errorf("Expected default APIURL, got %q", cfg.APIURL)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.HTTPTimeout)
	}
	if cfg.ExportMaxAttempts != 3 {
		t.Errorf("Expected 3 export attempts, got %d", cfg.ExportMaxAttempts)
	}
	if cfg.StoreBackend != "file" || filepath.Base(cfg.StorePath) != "session.json" {
		t.Errorf("Unexpected store defaults %q %q", cfg.StoreBackend, cfg.StorePath)
	}
	if cfg.SFTPPort != 22 || cfg.SFTPDir != "/inbound" || !cfg.SFTPInsecureIgnoreHostKey {
		t.Errorf("Unexpected SFTP defaults %+v", cfg)
	}
	if cfg.MockAPIAddr != ":8000" {
		t.Errorf("Expected default MockAPIAddr, got %q", cfg.MockAPIAddr)
	}

	t.Setenv("TUTORLY_API_URL", "https://learn.test")
	t.Setenv("TUTORLY_STORE", "sqlite")
	t.Setenv("SFTP_PORT", "2222")
	t.Setenv("SFTP_INSECURE_IGNORE_HOSTKEY", "false")

	cfg = Load(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.APIURL != "https://learn.test" {
		t.Errorf("Expected APIURL from env, got %q", cfg.APIURL)
	}
	if filepath.Base(cfg.StorePath) != "session.db" {
		t.Errorf("Expected sqlite default path, got %q", cfg.StorePath)
	}
	if cfg.SFTPPort != 2222 || cfg.SFTPInsecureIgnoreHostKey {
		t.Errorf("Unexpected SFTP values %d %v", cfg.SFTPPort, cfg.SFTPInsecureIgnoreHostKey)
	}
}

func TestLoadDotenv(t *testing.T) {
	// godotenv never overrides a variable that exists, even when empty.
	t.Setenv("TUTORLY_API_URL", "")
	os.Unsetenv("TUTORLY_API_URL")
	t.Setenv("TUTORLY_STORE_PATH", "/already/set.json")

	p := filepath.Join(t.TempDir(), ".env")
	body := "TUTORLY_API_URL=http://dotenv.test\nTUTORLY_STORE_PATH=/from/dotenv.json\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Load(p)
	if cfg.APIURL != "http://dotenv.test" {
		t.Errorf("Expected APIURL from .env, got %q", cfg.APIURL)
	}
	if cfg.StorePath != "/already/set.json" {
		t.Errorf("Expected environment to win over .env, got %q", cfg.StorePath)
	}
}
