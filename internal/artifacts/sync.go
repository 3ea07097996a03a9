package artifacts

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/podmill/podmill-go/internal/jobs"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
)

// InboxDirName is the subdirectory of the artifacts path where users
// drop documents and text files for the local sources.
const InboxDirName = "inbox"

// InboxPath returns the inbox directory under the artifacts path.
func InboxPath(artifactsDir string) string {
	return filepath.Join(artifactsDir, InboxDirName)
}

// sendProgress sends a progress update via WebSocket to connected clients.
func sendProgress(ctx jobs.JobContext, jobID string, message string, progress float64, done bool) {
	ctx.WsHub().BroadcastJSON(models.ProgressUpdate{
		JobID:    jobID,
		Message:  message,
		Progress: progress,
		Done:     done,
	})
}

// RunSync is the "artifact-sync" job. It reconciles the artifacts
// directory with the database: verifies checksums of completed
// podcasts, picks up sidecar cover images, reports orphaned files and
// releases stalled generation claims.
func RunSync(ctx jobs.JobContext) {
	const jobID = "artifact-sync"
	st := store.New(ctx.DB())
	dir := ctx.Config().Artifacts.Path

	sendProgress(ctx, jobID, "Scanning artifacts directory...", 0, false)

	podcasts, err := st.ListPodcasts()
	if err != nil {
		sendProgress(ctx, jobID, fmt.Sprintf("Failed to list podcasts: %v", err), 100, true)
		return
	}

	// Files accounted for by database rows; everything else in the
	// artifacts directory is an orphan.
	known := make(map[string]bool)

	total := len(podcasts)
	var drifted, covers int
	for i, p := range podcasts {
		if p.AudioPath != "" {
			known[filepath.Base(p.AudioPath)] = true
		}
		if p.TranscriptPath != "" {
			known[filepath.Base(p.TranscriptPath)] = true
		}

		if p.Status == models.StatusCompleted && p.AudioPath != "" {
			sum, err := FileChecksum(p.AudioPath)
			if err != nil {
				log.Printf("Audio artifact unreadable for podcast %s: %v", p.ID, err)
			} else if p.Checksum == "" {
				st.SetChecksum(p.ID, sum)
			} else if sum != p.Checksum {
				drifted++
				log.Printf("Checksum drift for podcast %s (%s): stored %s, found %s", p.ID, p.Title, p.Checksum, sum)
			}
		}

		// Sidecar covers are dropped next to the audio as <id>.cover.<ext>.
		if cover := findCoverFile(dir, p.ID); cover != "" {
			known[filepath.Base(cover)] = true
			if p.CoverThumbnail == "" {
				if thumb, err := renderCoverFile(cover); err != nil {
					log.Printf("Could not render cover for podcast %s: %v", p.ID, err)
				} else if err := st.UpdateCoverThumbnail(p.ID, thumb); err == nil {
					covers++
				}
			}
		}

		if total > 0 {
			progress := float64(i+1) / float64(total) * 90
			sendProgress(ctx, jobID, fmt.Sprintf("Checked %d of %d podcasts", i+1, total), progress, false)
		}
	}

	orphans := countOrphans(dir, known)

	released, err := st.ResetStalledClaims(time.Duration(ctx.Config().ClaimTimeout) * time.Minute)
	if err != nil {
		log.Printf("Could not release stalled claims: %v", err)
	}

	msg := fmt.Sprintf("Sync complete. %d checksum drift(s), %d new cover(s), %d orphan file(s), %d stalled claim(s) released.",
		drifted, covers, orphans, released)
	sendProgress(ctx, jobID, msg, 100, true)
}

// findCoverFile looks for a sidecar cover image for the given podcast ID.
func findCoverFile(dir, podcastID string) string {
	matches, err := filepath.Glob(filepath.Join(dir, podcastID+".cover.*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

func renderCoverFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return GenerateCoverThumbnail(data)
}

// countOrphans reports files in the artifacts directory that no podcast
// row references. The inbox subdirectory holds source inputs and is
// never scanned.
func countOrphans(dir string, known map[string]bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("Could not read artifacts directory %s: %v", dir, err)
		return 0
	}

	var orphans int
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if known[name] {
			continue
		}
		orphans++
		log.Printf("Orphaned artifact file: %s", name)
	}
	return orphans
}
