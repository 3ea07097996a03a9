package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/podmill/podmill-go/internal/client"
	"github.com/podmill/podmill-go/internal/models"
)

func TestCreatePodcast(t *testing.T) {
	var gotPath, gotMethod string
	var gotPayload map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotPayload)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Podcast{
			ID:     "pod-1",
			Title:  "Morning Brief",
			Status: models.StatusProcessing,
		})
	}))
	defer ts.Close()

	c := client.New(ts.URL)
	podcast, err := c.CreatePodcast(context.Background(), client.CreatePodcastRequest{
		Title:      "Morning Brief",
		SourceType: "article",
		SourceRef:  "https://example.com/story",
	})
	if err != nil {
		t.Fatalf("CreatePodcast failed: %v", err)
	}

	if gotMethod != "POST" || gotPath != "/api/podcasts" {
		t.Errorf("Unexpected request: %s %s", gotMethod, gotPath)
	}
	if gotPayload["sourceType"] != "article" {
		t.Errorf("Expected sourceType in payload, got %v", gotPayload)
	}
	if _, ok := gotPayload["voice"]; ok {
		t.Error("Expected empty voice to be omitted from the payload")
	}
	if podcast.ID != "pod-1" || podcast.Status != models.StatusProcessing {
		t.Errorf("Unexpected podcast: %+v", podcast)
	}
}

func TestGetPodcast(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/podcasts/pod-9" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(models.Podcast{ID: "pod-9", Title: "Found"})
	}))
	defer ts.Close()

	podcast, err := client.New(ts.URL).GetPodcast(context.Background(), "pod-9")
	if err != nil {
		t.Fatalf("GetPodcast failed: %v", err)
	}
	if podcast.Title != "Found" {
		t.Errorf("Unexpected podcast: %+v", podcast)
	}
}

func TestListPodcastsUnwrapsEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"podcasts": [{"podcastId": "a"}, {"podcastId": "b"}]}`)
	}))
	defer ts.Close()

	podcasts, err := client.New(ts.URL).ListPodcasts(context.Background())
	if err != nil {
		t.Fatalf("ListPodcasts failed: %v", err)
	}
	if len(podcasts) != 2 || podcasts[0].ID != "a" || podcasts[1].ID != "b" {
		t.Errorf("Unexpected podcasts: %+v", podcasts)
	}
}

func TestSources(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sources" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `[{"id": "article", "name": "Web Article"}, {"id": "text", "name": "Plain Text"}]`)
	}))
	defer ts.Close()

	sourceList, err := client.New(ts.URL).Sources(context.Background())
	if err != nil {
		t.Fatalf("Sources failed: %v", err)
	}
	if len(sourceList) != 2 || sourceList[0].ID != "article" {
		t.Errorf("Unexpected sources: %+v", sourceList)
	}
}

func TestPodcastStatus(t *testing.T) {
	estimate := time.Now().Add(30 * time.Second).UTC().Truncate(time.Second)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/podcasts/pod-1/status" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":             true,
			"podcastId":           "pod-1",
			"status":              "processing",
			"progressPercentage":  40,
			"currentStep":         "Synthesizing segment 2 of 5",
			"updatedAt":           time.Now().UTC(),
			"estimatedCompletion": estimate,
		})
	}))
	defer ts.Close()

	snapshot, err := client.New(ts.URL).PodcastStatus(context.Background(), "pod-1")
	if err != nil {
		t.Fatalf("PodcastStatus failed: %v", err)
	}
	if snapshot.PodcastID != "pod-1" || snapshot.Status != models.StatusProcessing {
		t.Errorf("Unexpected snapshot: %+v", snapshot)
	}
	if snapshot.Progress != 40 {
		t.Errorf("Expected progress 40, got %d", snapshot.Progress)
	}
	if snapshot.CurrentStep != "Synthesizing segment 2 of 5" {
		t.Errorf("Unexpected step: %q", snapshot.CurrentStep)
	}
	if snapshot.EstimatedCompletion == nil || !snapshot.EstimatedCompletion.Equal(estimate) {
		t.Errorf("Expected estimate %v, got %v", estimate, snapshot.EstimatedCompletion)
	}
}

func TestPodcastStatusSuccessFalse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success": false, "podcastId": "pod-1"}`)
	}))
	defer ts.Close()

	_, err := client.New(ts.URL).PodcastStatus(context.Background(), "pod-1")
	var protoErr *client.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("Expected a ProtocolError, got %v", err)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	t.Run("JSON Error Body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error": "Podcast not found"}`)
		}))
		defer ts.Close()

		_, err := client.New(ts.URL).GetPodcast(context.Background(), "missing")
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Expected an APIError, got %v", err)
		}
		if apiErr.HTTPStatus() != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", apiErr.HTTPStatus())
		}
		if apiErr.Message != "Podcast not found" {
			t.Errorf("Expected server message, got %q", apiErr.Message)
		}
	})

	t.Run("Non-JSON Error Body", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "boom")
		}))
		defer ts.Close()

		_, err := client.New(ts.URL).GetPodcast(context.Background(), "x")
		var apiErr *client.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("Expected an APIError, got %v", err)
		}
		if apiErr.Message != "Internal Server Error" {
			t.Errorf("Expected status text fallback, got %q", apiErr.Message)
		}
	})
}

func TestDeletePodcast(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" {
			t.Errorf("Expected DELETE, got %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	if err := client.New(ts.URL).DeletePodcast(context.Background(), "pod-1"); err != nil {
		t.Fatalf("DeletePodcast failed: %v", err)
	}
}

func TestAudioDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF fake wav"))
	}))
	defer ts.Close()

	body, err := client.New(ts.URL).Audio(context.Background(), "pod-1")
	if err != nil {
		t.Fatalf("Audio failed: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != "RIFF fake wav" {
		t.Errorf("Unexpected audio body: %q", data)
	}
}

func TestBaseURLNormalization(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, `{"podcasts": []}`)
	}))
	defer ts.Close()

	if _, err := client.New(ts.URL + "/").ListPodcasts(context.Background()); err != nil {
		t.Fatalf("ListPodcasts failed: %v", err)
	}
	if gotPath != "/api/podcasts" {
		t.Errorf("Expected normalized path, got %q", gotPath)
	}
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.New(ts.URL).PodcastStatus(ctx, "pod-1")
	if err == nil {
		t.Fatal("Expected an error from a cancelled context")
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("Context errors must not be APIErrors, got %v", apiErr)
	}
}
