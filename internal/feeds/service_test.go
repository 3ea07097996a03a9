package feeds_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/podmill/podmill-go/internal/feeds"
	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/generator/sources/mocktape"
	"github.com/podmill/podmill-go/internal/generator/sources/text"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
	"github.com/podmill/podmill-go/internal/testutil"
)

func TestCheckFeedQueuesNewItems(t *testing.T) {
	app := testutil.SetupTestApp(t)
	st := store.New(app.DB())

	feed, err := st.CreateFeed("Daily Mix", "https://example.com/feed", "mocktape", "deep")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	svc := feeds.NewService(app)
	svc.CheckFeed(feed.ID)

	podcasts, err := st.ListPodcasts()
	if err != nil {
		t.Fatalf("Failed to list podcasts: %v", err)
	}
	if len(podcasts) != 3 {
		t.Fatalf("Expected 3 queued podcasts, got %d", len(podcasts))
	}
	for _, p := range podcasts {
		if p.Status != models.StatusProcessing {
			t.Errorf("Expected a processing podcast, got %s", p.Status)
		}
		if p.SourceType != "mocktape" {
			t.Errorf("Expected source type 'mocktape', got %q", p.SourceType)
		}
		if p.Voice != "deep" {
			t.Errorf("Expected the feed voice to carry over, got %q", p.Voice)
		}
		if !strings.Contains(p.SourceRef, "#episode-") {
			t.Errorf("Unexpected source ref %q", p.SourceRef)
		}
	}

	refreshed, err := st.GetFeedByID(feed.ID)
	if err != nil {
		t.Fatalf("Failed to reload feed: %v", err)
	}
	if refreshed.LastCheckedAt == nil {
		t.Error("Expected last checked time to be set after a check")
	}
}

func TestCheckFeedSkipsExistingItems(t *testing.T) {
	app := testutil.SetupTestApp(t)
	st := store.New(app.DB())

	feed, err := st.CreateFeed("Daily Mix", "https://example.com/feed", "mocktape", "narrator")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	svc := feeds.NewService(app)
	svc.CheckFeed(feed.ID)
	svc.CheckFeed(feed.ID)

	podcasts, err := st.ListPodcasts()
	if err != nil {
		t.Fatalf("Failed to list podcasts: %v", err)
	}
	if len(podcasts) != 3 {
		t.Errorf("Re-checking must not queue duplicates: got %d podcasts", len(podcasts))
	}
}

func TestCheckAllFeeds(t *testing.T) {
	app := testutil.SetupTestApp(t)
	st := store.New(app.DB())

	if _, err := st.CreateFeed("Feed One", "https://example.com/one", "mocktape", "narrator"); err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}
	if _, err := st.CreateFeed("Feed Two", "https://example.com/two", "mocktape", "narrator"); err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	feeds.NewService(app).CheckAllFeeds()

	podcasts, err := st.ListPodcasts()
	if err != nil {
		t.Fatalf("Failed to list podcasts: %v", err)
	}
	if len(podcasts) != 6 {
		t.Errorf("Expected 3 podcasts per feed, got %d total", len(podcasts))
	}
}

func TestCheckFeedUnknownSource(t *testing.T) {
	app := testutil.SetupTestApp(t)
	st := store.New(app.DB())

	feed, err := st.CreateFeed("Ghost Feed", "https://example.com/ghost", "vanished", "narrator")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	feeds.NewService(app).CheckFeed(feed.ID)

	podcasts, err := st.ListPodcasts()
	if err != nil {
		t.Fatalf("Failed to list podcasts: %v", err)
	}
	if len(podcasts) != 0 {
		t.Errorf("Expected no podcasts for an unknown source, got %d", len(podcasts))
	}
}

func TestCheckFeedSourceWithoutDiscovery(t *testing.T) {
	app := testutil.SetupTestApp(t)
	st := store.New(app.DB())
	sources.Register(text.New(t.TempDir()))

	feed, err := st.CreateFeed("Text Feed", "https://example.com/text", "text", "narrator")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	feeds.NewService(app).CheckFeed(feed.ID)

	podcasts, err := st.ListPodcasts()
	if err != nil {
		t.Fatalf("Failed to list podcasts: %v", err)
	}
	if len(podcasts) != 0 {
		t.Errorf("A source without discovery must not queue podcasts, got %d", len(podcasts))
	}
	refreshed, err := st.GetFeedByID(feed.ID)
	if err != nil {
		t.Fatalf("Failed to reload feed: %v", err)
	}
	if refreshed.LastCheckedAt != nil {
		t.Error("A failed check must not update the last checked time")
	}
}

func TestCheckFeedDiscoverFailure(t *testing.T) {
	app := testutil.SetupTestApp(t)
	st := store.New(app.DB())

	sources.UnregisterAll()
	tape := mocktape.New()
	tape.Err = errors.New("tape jammed")
	sources.Register(tape)

	feed, err := st.CreateFeed("Jammed Feed", "https://example.com/jammed", "mocktape", "narrator")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	feeds.NewService(app).CheckFeed(feed.ID)

	podcasts, err := st.ListPodcasts()
	if err != nil {
		t.Fatalf("Failed to list podcasts: %v", err)
	}
	if len(podcasts) != 0 {
		t.Errorf("Expected no podcasts after a discovery failure, got %d", len(podcasts))
	}
}
