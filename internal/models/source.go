package models

import (
	"context"
	"time"
)

// SourceInfo contains static information about a content source.
type SourceInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SourceContent is the material a source hands to the generation
// pipeline: a title plus the raw text to narrate.
type SourceContent struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Byline   string `json:"byline,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"` // Lead image, if the source exposes one
}

// FeedItem is a single entry discovered when checking a feed.
type FeedItem struct {
	Title       string    `json:"title"`
	Ref         string    `json:"ref"` // Passed back to the same source's Fetch
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// Source defines the contract that every content connector must implement.
type Source interface {
	Info() SourceInfo
	Fetch(ctx context.Context, ref string) (*SourceContent, error)
}

// Discoverer is an optional capability of a Source: listing the items
// currently visible on a feed URL so the feed service can enqueue new
// ones.
type Discoverer interface {
	Discover(ctx context.Context, feedURL string) ([]FeedItem, error)
}
