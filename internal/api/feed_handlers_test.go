package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/podmill/podmill-go/internal/generator/sources"
	"github.com/podmill/podmill-go/internal/generator/sources/text"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/store"
	"github.com/podmill/podmill-go/internal/testutil"
)

func TestFeedHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	t.Run("Create Feed", func(t *testing.T) {
		payload := `{"title": "Daily Tape", "url": "tape://daily", "sourceType": "mocktape", "voice": "deep"}`
		req, _ := http.NewRequest("POST", "/api/feeds", bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("handler returned wrong status code: got %v want %v, body: %s", rr.Code, http.StatusCreated, rr.Body.String())
		}
		var feed models.Feed
		if err := json.Unmarshal(rr.Body.Bytes(), &feed); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if feed.ID == 0 || feed.Title != "Daily Tape" || feed.Voice != "deep" {
			t.Errorf("Unexpected feed in response: %+v", feed)
		}
	})

	t.Run("Create Feed Unknown Source", func(t *testing.T) {
		payload := `{"title": "X", "url": "tape://x", "sourceType": "vanished"}`
		req, _ := http.NewRequest("POST", "/api/feeds", bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for unknown source, got %d", rr.Code)
		}
	})

	t.Run("Create Feed Source Without Discovery", func(t *testing.T) {
		sources.Register(text.New(t.TempDir()))
		payload := `{"title": "X", "url": "notes.txt", "sourceType": "text"}`
		req, _ := http.NewRequest("POST", "/api/feeds", bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for non-discoverable source, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "discovery") {
			t.Errorf("Expected error to mention discovery, got %s", rr.Body.String())
		}
	})

	t.Run("Create Feed Missing URL", func(t *testing.T) {
		payload := `{"title": "X", "sourceType": "mocktape"}`
		req, _ := http.NewRequest("POST", "/api/feeds", bytes.NewBufferString(payload))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for missing URL, got %d", rr.Code)
		}
	})

	t.Run("List Feeds", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/feeds", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
		var envelope struct {
			Feeds []*models.Feed `json:"feeds"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(envelope.Feeds) != 1 {
			t.Errorf("Expected 1 feed, got %d", len(envelope.Feeds))
		}
	})

	t.Run("Delete Feed", func(t *testing.T) {
		feed, err := s.CreateFeed("Short Lived", "tape://short", "mocktape", "narrator")
		if err != nil {
			t.Fatalf("Failed to create feed: %v", err)
		}

		req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/feeds/%d", feed.ID), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNoContent)
		}
		feedList, _ := s.GetAllFeeds()
		for _, f := range feedList {
			if f.ID == feed.ID {
				t.Error("Expected feed to be deleted")
			}
		}
	})
}

func TestRecheckFeedHandler(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	feed, err := s.CreateFeed("Recheck Tape", "tape://recheck", "mocktape", "narrator")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	req, _ := http.NewRequest("POST", fmt.Sprintf("/api/feeds/%d/recheck", feed.ID), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusAccepted)
	}

	// The check runs in the background; wait for the queued podcasts.
	deadline := time.Now().Add(10 * time.Second)
	for {
		podcasts, err := s.ListPodcasts()
		if err != nil {
			t.Fatalf("Failed to list podcasts: %v", err)
		}
		if len(podcasts) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for discovered podcasts, have %d", len(podcasts))
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestRecheckFeedHandlerUnknownFeed(t *testing.T) {
	server, _ := testutil.SetupTestServer(t)
	router := server.Router()

	req, _ := http.NewRequest("POST", "/api/feeds/99999/recheck", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got %d", rr.Code)
	}
}

func TestRecheckAllFeedsHandler(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()
	s := store.New(db)

	if _, err := s.CreateFeed("A", "tape://a", "mocktape", "narrator"); err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}
	if _, err := s.CreateFeed("B", "tape://b", "mocktape", "narrator"); err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	req, _ := http.NewRequest("POST", "/api/feeds/recheck-all", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusAccepted)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		podcasts, err := s.ListPodcasts()
		if err != nil {
			t.Fatalf("Failed to list podcasts: %v", err)
		}
		if len(podcasts) == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for discovered podcasts, have %d", len(podcasts))
		}
		time.Sleep(50 * time.Millisecond)
	}
}
