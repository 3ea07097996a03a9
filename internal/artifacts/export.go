package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mholt/archives"

	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/util"
)

// ExportBundle streams a zip archive to w containing the podcast's
// audio, its transcript and a metadata.json describing the episode.
func ExportBundle(ctx context.Context, w io.Writer, p *models.Podcast) error {
	if p.AudioPath == "" {
		return fmt.Errorf("podcast %s has no audio artifact", p.ID)
	}

	meta, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	// archives reads from disk, so the generated metadata goes through a
	// temporary file.
	metaFile, err := os.CreateTemp("", "podmill-meta-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(metaFile.Name())
	if _, err := metaFile.Write(meta); err != nil {
		metaFile.Close()
		return err
	}
	metaFile.Close()

	base := util.SanitizeFilename(p.Title)
	if base == "" {
		base = p.ID
	}

	onDisk := map[string]string{
		p.AudioPath:     base + filepath.Ext(p.AudioPath),
		metaFile.Name(): "metadata.json",
	}
	if p.TranscriptPath != "" {
		onDisk[p.TranscriptPath] = base + ".txt"
	}

	files, err := archives.FilesFromDisk(ctx, nil, onDisk)
	if err != nil {
		return fmt.Errorf("failed to collect export files: %w", err)
	}
	if err := (archives.Zip{}).Archive(ctx, w, files); err != nil {
		return fmt.Errorf("failed to write export archive: %w", err)
	}
	return nil
}
