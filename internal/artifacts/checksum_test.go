package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/podmill/podmill-go/internal/artifacts"
)

func TestFileChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	sum1, err := artifacts.FileChecksum(path)
	if err != nil {
		t.Fatalf("FileChecksum failed: %v", err)
	}
	if len(sum1) != 64 {
		t.Errorf("Expected a 64 character hex digest, got %d characters", len(sum1))
	}

	sum2, err := artifacts.FileChecksum(path)
	if err != nil {
		t.Fatalf("FileChecksum failed on second read: %v", err)
	}
	if sum1 != sum2 {
		t.Error("Expected checksum to be stable for unchanged content")
	}

	if err := os.WriteFile(path, []byte("RIFF other audio"), 0644); err != nil {
		t.Fatalf("Failed to rewrite test file: %v", err)
	}
	sum3, err := artifacts.FileChecksum(path)
	if err != nil {
		t.Fatalf("FileChecksum failed after rewrite: %v", err)
	}
	if sum3 == sum1 {
		t.Error("Expected different content to produce a different checksum")
	}
}

func TestFileChecksumMissingFile(t *testing.T) {
	_, err := artifacts.FileChecksum(filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil {
		t.Error("Expected an error for a missing file")
	}
}
