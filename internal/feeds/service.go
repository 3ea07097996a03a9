// Package feeds periodically checks subscribed content feeds and queues
// a podcast for every newly discovered item.
package feeds

import (
	"context"
	"log"
	"time"

	"github.com/podmill/podmill-go/internal/core"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
)

const discoverTimeout = 2 * time.Minute

// Service holds the dependencies for the feed checker.
type Service struct {
	app *core.App
	st  *store.Store
}

// NewService creates a new feed checking service.
func NewService(app *core.App) *Service {
	return &Service{
		app: app,
		st:  store.New(app.DB()),
	}
}

// Start runs the feed checker in the background: an initial check
// shortly after startup, then on the configured interval.
func (s *Service) Start() {
	interval := time.Duration(s.app.Config().FeedCheckInterval) * time.Minute
	if interval <= 0 {
		log.Println("Feed check interval is 0, periodic checks are disabled.")
		return
	}

	log.Println("Starting feed service...")
	time.AfterFunc(1*time.Minute, s.CheckAllFeeds)

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			s.CheckAllFeeds()
		}
	}()
}

// CheckAllFeeds fetches all feeds and checks them for new items.
func (s *Service) CheckAllFeeds() {
	log.Println("Running scheduled feed check...")
	feeds, err := s.st.GetAllFeeds()
	if err != nil {
		log.Printf("Feed Check Error: Failed to list feeds: %v", err)
		return
	}

	for _, feed := range feeds {
		s.CheckFeed(feed.ID)
	}
	log.Println("Finished scheduled feed check.")
}

// CheckFeed checks a specific feed for new items and queues a podcast
// for each one that has not been generated yet.
func (s *Service) CheckFeed(feedID int64) {
	feed, err := s.st.GetFeedByID(feedID)
	if err != nil {
		log.Printf("Feed Check Error: Failed to get feed %d: %v", feedID, err)
		return
	}

	source, ok := sources.Get(feed.SourceType)
	if !ok {
		log.Printf("Feed Check Error: Source '%s' not found for feed '%s'", feed.SourceType, feed.Title)
		return
	}
	discoverer, ok := source.(models.Discoverer)
	if !ok {
		log.Printf("Feed Check Error: Source '%s' does not support discovery", feed.SourceType)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()
	items, err := discoverer.Discover(ctx, feed.URL)
	if err != nil {
		log.Printf("Feed Check Error: Failed to discover items for '%s': %v", feed.Title, err)
		return
	}

	queued := 0
	for _, item := range items {
		exists, err := s.st.ExistsForSource(feed.SourceType, item.Ref)
		if err != nil {
			log.Printf("Feed Check Error: Failed to check for existing podcast: %v", err)
			continue
		}
		if exists {
			continue
		}

		title := item.Title
		if title == "" {
			title = feed.Title
		}
		podcast := &models.Podcast{
			Title:      title,
			SourceType: feed.SourceType,
			SourceRef:  item.Ref,
			Voice:      feed.Voice,
		}
		if err := s.st.CreatePodcast(podcast); err != nil {
			log.Printf("Feed Check Error: Failed to queue podcast for '%s': %v", item.Title, err)
			continue
		}
		queued++
	}

	if queued > 0 {
		log.Printf("Found %d new item(s) for '%s'. Queued for generation.", queued, feed.Title)
	} else {
		log.Printf("No new items found for '%s'.", feed.Title)
	}

	if err := s.st.TouchFeedChecked(feed.ID); err != nil {
		log.Printf("Feed Check Error: Failed to update last checked time for '%s': %v", feed.Title, err)
	}
}
