package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testKey = "access_token"

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()

	if _, ok, err := kv.Get(testKey); err != nil || ok {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := kv.Set(testKey, "abc"); err != nil {
		t.Fatalf("Expected no error on Set, got %v", err)
	}
	v, ok, err := kv.Get(testKey)
	if err != nil || !ok || v != "abc" {
		t.Errorf("Expected (abc, true, nil), got (%q, %v, %v)", v, ok, err)
	}

	if err := kv.Set(testKey, "def"); err != nil {
		t.Fatalf("Expected no error on overwrite, got %v", err)
	}
	v, _, _ = kv.Get(testKey)
	if v != "def" {
		t.Errorf("Expected last write to win, got %q", v)
	}

	if err := kv.Delete(testKey); err != nil {
		t.Fatalf("Expected no error on Delete, got %v", err)
	}
	if _, ok, _ := kv.Get(testKey); ok {
		t.Error("Expected key to be gone after Delete")
	}

	// deleting a missing key is not an error
	if err := kv.Delete(testKey); err != nil {
		t.Errorf("Expected no error deleting a missing key, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseKV(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	exerciseKV(t, fs)
}

func TestFileStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	first, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(testKey, "persisted"); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := second.Get(testKey)
	if err != nil || !ok || v != "persisted" {
		t.Errorf("Expected value to survive reopen, got (%q, %v, %v)", v, ok, err)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := fs.Get(testKey); err == nil || !strings.Contains(err.Error(), "storage: parse") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer s.Close()
	exerciseKV(t, s)
}

func TestSQLiteStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	first, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(testKey, "persisted"); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	v, ok, err := second.Get(testKey)
	if err != nil || !ok || v != "persisted" {
		t.Errorf("Expected value to survive reopen, got (%q, %v, %v)", v, ok, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	testCases := []struct {
		kind    string
		path    string
		wantErr bool
	}{
		{"", filepath.Join(dir, "a.json"), false},
		{"file", filepath.Join(dir, "b.json"), false},
		{"SQLite", filepath.Join(dir, "c.db"), false},
		{"memory", "", false},
		{"redis", "", true},
		{"file", "", true},
	}

	for _, tc := range testCases {
		kv, err := Open(tc.kind, tc.path)
		if (err != nil) != tc.wantErr {
			t.Errorf("Open(%q, %q) err = %v, wantErr %v", tc.kind, tc.path, err, tc.wantErr)
			continue
		}
		if kv != nil {
			kv.Close()
		}
	}
}
