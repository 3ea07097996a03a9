// A mock source for development and testing purposes. It produces
// deterministic content without touching the network or the disk, and
// can be configured to delay or fail.
package mocktape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/podmill/podmill-go/internal/models"
)

type MocktapeSource struct {
	Delay   time.Duration                    // Artificial latency per call
	Err     error                            // When set, every call fails with it
	Content map[string]*models.SourceContent // Per-ref overrides
	Items   []models.FeedItem                // Discover overrides
}

func New() *MocktapeSource {
	return &MocktapeSource{}
}

func (s *MocktapeSource) Info() models.SourceInfo {
	return models.SourceInfo{
		ID:          "mocktape",
		Name:        "Mocktape",
		Description: "Deterministic mock content for tests and demos",
	}
}

func (s *MocktapeSource) Fetch(ctx context.Context, ref string) (*models.SourceContent, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if c, ok := s.Content[ref]; ok {
		return c, nil
	}

	paragraphs := make([]string, 3)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf(
			"Segment %d of the mocktape recording for %q. Nothing here is real, but it reads the same every time.",
			i+1, ref)
	}
	return &models.SourceContent{
		Title: fmt.Sprintf("Mocktape: %s", ref),
		Text:  strings.Join(paragraphs, "\n\n"),
	}, nil
}

func (s *MocktapeSource) Discover(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Items) > 0 {
		return s.Items, nil
	}

	var items []models.FeedItem
	for i := 1; i <= 3; i++ {
		items = append(items, models.FeedItem{
			Title:       fmt.Sprintf("Mock Episode %d", i),
			Ref:         fmt.Sprintf("%s#episode-%d", feedURL, i),
			PublishedAt: time.Now().AddDate(0, 0, -i),
		})
	}
	return items, nil
}

func (s *MocktapeSource) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
