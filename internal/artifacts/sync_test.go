package artifacts_test

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/podmill/podmill-go/internal/artifacts"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
	"github.com/podmill/podmill-go/internal/testutil"
)

// A valid 1x1 PNG, base64 encoded.
const tinyPngB64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func TestRunSync(t *testing.T) {
	ctx := testutil.NewMockJobContext(t)
	dir := t.TempDir()
	ctx.Config().Artifacts.Path = dir
	ctx.Config().ClaimTimeout = 30
	st := store.New(ctx.DB())

	// A completed podcast whose checksum was never recorded.
	done := &models.Podcast{Title: "Done Episode", SourceType: "text", SourceRef: "text:done"}
	if err := st.CreatePodcast(done); err != nil {
		t.Fatalf("Failed to create podcast: %v", err)
	}
	audioPath := filepath.Join(dir, "done.wav")
	if err := os.WriteFile(audioPath, []byte("RIFF fake audio"), 0644); err != nil {
		t.Fatalf("Failed to write audio file: %v", err)
	}
	if err := st.MarkCompleted(done.ID, audioPath, "", 12, ""); err != nil {
		t.Fatalf("Failed to mark podcast completed: %v", err)
	}

	// A sidecar cover image for the same podcast.
	pngData, _ := base64.StdEncoding.DecodeString(tinyPngB64)
	if err := os.WriteFile(filepath.Join(dir, done.ID+".cover.png"), pngData, 0644); err != nil {
		t.Fatalf("Failed to write cover file: %v", err)
	}

	// A file no podcast row references.
	if err := os.WriteFile(filepath.Join(dir, "stray.wav"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write stray file: %v", err)
	}

	// A claim that stalled two hours ago.
	stuck := &models.Podcast{Title: "Stuck Episode", SourceType: "text", SourceRef: "text:stuck"}
	if err := st.CreatePodcast(stuck); err != nil {
		t.Fatalf("Failed to create podcast: %v", err)
	}
	if _, err := ctx.DB().Exec("UPDATE podcasts SET started_at = ? WHERE id = ?", time.Now().Add(-2*time.Hour), stuck.ID); err != nil {
		t.Fatalf("Failed to backdate claim: %v", err)
	}

	artifacts.RunSync(ctx)

	got, err := st.GetPodcast(done.ID)
	if err != nil {
		t.Fatalf("Failed to reload podcast: %v", err)
	}
	if got.Checksum == "" {
		t.Error("Expected sync to record the missing checksum")
	}
	if !strings.HasPrefix(got.CoverThumbnail, "data:image/jpeg;base64,") {
		t.Errorf("Expected sync to pick up the sidecar cover, got %q", got.CoverThumbnail)
	}

	got, err = st.GetPodcast(stuck.ID)
	if err != nil {
		t.Fatalf("Failed to reload podcast: %v", err)
	}
	if got.StartedAt != nil {
		t.Error("Expected sync to release the stalled claim")
	}

	final := drainUntilDone(t, ctx)
	if final.JobID != "artifact-sync" {
		t.Errorf("Expected job ID 'artifact-sync', got %q", final.JobID)
	}
	if !strings.Contains(final.Message, "1 orphan file(s)") {
		t.Errorf("Expected final message to report one orphan, got %q", final.Message)
	}
	if !strings.Contains(final.Message, "1 new cover(s)") {
		t.Errorf("Expected final message to report one new cover, got %q", final.Message)
	}
	if !strings.Contains(final.Message, "1 stalled claim(s) released") {
		t.Errorf("Expected final message to report one released claim, got %q", final.Message)
	}
}

func TestRunSyncDetectsChecksumDrift(t *testing.T) {
	ctx := testutil.NewMockJobContext(t)
	dir := t.TempDir()
	ctx.Config().Artifacts.Path = dir
	ctx.Config().ClaimTimeout = 30
	st := store.New(ctx.DB())

	p := &models.Podcast{Title: "Drifting", SourceType: "text", SourceRef: "text:drift"}
	if err := st.CreatePodcast(p); err != nil {
		t.Fatalf("Failed to create podcast: %v", err)
	}
	audioPath := filepath.Join(dir, "drift.wav")
	if err := os.WriteFile(audioPath, []byte("original content"), 0644); err != nil {
		t.Fatalf("Failed to write audio file: %v", err)
	}
	sum, err := artifacts.FileChecksum(audioPath)
	if err != nil {
		t.Fatalf("FileChecksum failed: %v", err)
	}
	if err := st.MarkCompleted(p.ID, audioPath, "", 12, sum); err != nil {
		t.Fatalf("Failed to mark podcast completed: %v", err)
	}

	// Rewrite the file behind the database's back.
	if err := os.WriteFile(audioPath, []byte("tampered content"), 0644); err != nil {
		t.Fatalf("Failed to rewrite audio file: %v", err)
	}

	artifacts.RunSync(ctx)

	final := drainUntilDone(t, ctx)
	if !strings.Contains(final.Message, "1 checksum drift(s)") {
		t.Errorf("Expected final message to report one drift, got %q", final.Message)
	}

	// Drift is reported, never silently repaired.
	got, err := st.GetPodcast(p.ID)
	if err != nil {
		t.Fatalf("Failed to reload podcast: %v", err)
	}
	if got.Checksum != sum {
		t.Errorf("Expected stored checksum to stay %q, got %q", sum, got.Checksum)
	}
}

// drainUntilDone reads broadcast messages until the final one of a job
// run arrives.
func drainUntilDone(t *testing.T, ctx *testutil.MockJobContext) models.ProgressUpdate {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ctx.WsHub().Broadcast:
			var update models.ProgressUpdate
			if err := json.Unmarshal(msg, &update); err != nil {
				t.Fatalf("Broadcast message is not a progress update: %v", err)
			}
			if update.Done {
				return update
			}
		case <-deadline:
			t.Fatal("Timed out waiting for the final progress update")
		}
	}
}
