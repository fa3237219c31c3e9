package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/snonux/firetrans/internal/store"
)

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// CreateBatchFile writes lines to a word list in a temp directory and
// returns its path
func CreateBatchFile(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "words.txt")
	CreateTestFile(t, path, []byte(strings.Join(lines, "\n")+"\n"))
	return path
}

// Record builds a store record stamped minutes after a fixed base time
func Record(id, original, translated string, minutes int) store.Record {
	base := time.Date(2025, 11, 4, 12, 0, 0, 0, time.UTC)
	return store.Record{
		ID:             id,
		OriginalText:   original,
		TranslatedText: translated,
		Timestamp:      base.Add(time.Duration(minutes) * time.Minute),
	}
}

// Eventually polls cond until it holds or the timeout passes
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
