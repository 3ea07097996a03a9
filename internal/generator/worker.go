package generator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/podmill/podmill-go/internal/artifacts"
	"github.com/podmill/podmill-go/internal/core"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/generator/synth"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
)

const (
	dispatchInterval = 5 * time.Second
	fetchTimeout     = 5 * time.Minute
)

// StartWorkerPool launches the generation workers and the dispatcher
// goroutine that feeds them claimed podcasts.
func StartWorkerPool(app *core.App) {
	workers := app.Config().Generation.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := make(chan *models.Podcast, workers)
	st := store.New(app.DB())

	// Release claims orphaned by a previous run before picking up work.
	timeout := time.Duration(app.Config().ClaimTimeout) * time.Minute
	if released, err := st.ResetStalledClaims(timeout); err != nil {
		log.Printf("Error resetting stalled claims: %v", err)
	} else if released > 0 {
		log.Printf("Released %d stalled generation claim(s) on startup", released)
	}

	for i := 1; i <= workers; i++ {
		go worker(i, app, st, queue)
	}

	go func() {
		for {
			// Only fetch more work once the buffer has drained.
			if len(queue) == 0 {
				dispatch(st, queue, workers)
			}
			time.Sleep(dispatchInterval)
		}
	}()
}

// dispatch claims up to `limit` queued podcasts and hands them to the
// workers. The RowsAffected guard in ClaimPodcast makes this safe even
// if another dispatcher races us.
func dispatch(st *store.Store, queue chan<- *models.Podcast, limit int) {
	podcasts, err := st.GetUnclaimedPodcasts(limit)
	if err != nil {
		log.Printf("Error fetching queued podcasts: %v", err)
		return
	}
	for _, p := range podcasts {
		claimed, err := st.ClaimPodcast(p.ID)
		if err != nil {
			log.Printf("Error claiming podcast %s: %v", p.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		queue <- p
	}
}

func worker(id int, app *core.App, st *store.Store, queue <-chan *models.Podcast) {
	log.Printf("Starting generation worker %d", id)
	for p := range queue {
		pl := &pipeline{app: app, st: st, podcast: p, startedAt: time.Now()}
		if err := pl.run(); err != nil {
			log.Printf("Generation of podcast %s failed: %v", p.ID, err)
			if markErr := st.MarkFailed(p.ID, err.Error()); markErr != nil {
				log.Printf("Error marking podcast %s as failed: %v", p.ID, markErr)
			}
			pl.broadcast(err.Error(), models.StatusFailed, true)
		}
	}
}

// pipeline carries one podcast through generation and reports progress
// along the way.
type pipeline struct {
	app       *core.App
	st        *store.Store
	podcast   *models.Podcast
	startedAt time.Time
	progress  int
}

func (pl *pipeline) run() error {
	p := pl.podcast

	source, ok := sources.Get(p.SourceType)
	if !ok {
		return fmt.Errorf("source '%s' not found", p.SourceType)
	}

	pl.advance(5, "Fetching source content")
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	content, err := source.Fetch(ctx, p.SourceRef)
	if err != nil {
		return fmt.Errorf("could not fetch source content: %w", err)
	}

	pl.advance(20, "Composing narration")
	title := p.Title
	if title == "" {
		title = content.Title
	}
	if title == "" {
		title = "Untitled episode"
	}
	chunks := composeNarration(content, title)

	s := synth.New(pl.app.Config().Generation.SampleRate, synth.VoiceByName(p.Voice))
	var samples []int16
	total := len(chunks)
	for i, chunk := range chunks {
		samples = append(samples, s.RenderSegment(chunk)...)
		pl.advance(40+(i+1)*50/total, fmt.Sprintf("Synthesizing segment %d of %d", i+1, total))
	}

	pl.advance(95, "Writing artifacts")
	artifactsDir := pl.app.Config().Artifacts.Path
	if err := os.MkdirAll(artifactsDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	audioPath := filepath.Join(artifactsDir, p.ID+".wav")
	audioFile, err := os.Create(audioPath)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}
	if err := synth.WriteWAV(audioFile, s.SampleRate(), samples); err != nil {
		audioFile.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := audioFile.Close(); err != nil {
		return fmt.Errorf("failed to finalize audio file: %w", err)
	}

	transcriptPath := filepath.Join(artifactsDir, p.ID+".txt")
	transcript := strings.Join(chunks, "\n\n") + "\n"
	if err := os.WriteFile(transcriptPath, []byte(transcript), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	checksum, err := artifacts.FileChecksum(audioPath)
	if err != nil {
		return fmt.Errorf("failed to checksum audio file: %w", err)
	}

	duration := len(samples) / s.SampleRate()
	if err := pl.st.MarkCompleted(p.ID, audioPath, transcriptPath, duration, checksum); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	pl.progress = 100
	pl.broadcast("Generation complete", models.StatusCompleted, true)
	return nil
}

// advance persists a progress milestone and broadcasts it. The
// completion estimate is a linear extrapolation from elapsed time and
// is only ever attached while the podcast is still processing.
func (pl *pipeline) advance(progress int, step string) {
	pl.progress = progress

	var estimate *time.Time
	if progress > 0 && progress < 100 {
		elapsed := time.Since(pl.startedAt)
		eta := pl.startedAt.Add(time.Duration(float64(elapsed) * 100.0 / float64(progress)))
		estimate = &eta
	}

	if err := pl.st.UpdateProgress(pl.podcast.ID, progress, step, estimate); err != nil {
		log.Printf("Error updating progress for podcast %s: %v", pl.podcast.ID, err)
	}
	pl.broadcast(step, models.StatusProcessing, false)
}

func (pl *pipeline) broadcast(message string, status models.PodcastStatus, done bool) {
	pl.app.WsHub().BroadcastJSON(models.ProgressUpdate{
		JobID:     "generator",
		PodcastID: pl.podcast.ID,
		Message:   message,
		Progress:  float64(pl.progress),
		Status:    string(status),
		Done:      done,
	})
}
