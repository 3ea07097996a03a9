// The article source fetches a web page and extracts its readable text
// for narration. It also implements feed discovery by collecting
// same-host links from an index page.
package article

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/podmill/podmill-go/internal/models"
)

type ArticleSource struct {
	client *http.Client
}

func New() *ArticleSource {
	return &ArticleSource{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ArticleSource) Info() models.SourceInfo {
	return models.SourceInfo{
		ID:          "article",
		Name:        "Web Article",
		Description: "Narrates the text of a web article",
	}
}

func (s *ArticleSource) Fetch(ctx context.Context, ref string) (*models.SourceContent, error) {
	doc, err := s.fetchDocument(ctx, ref)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	byline := strings.TrimSpace(doc.Find(`meta[name="author"]`).AttrOr("content", ""))
	image := strings.TrimSpace(doc.Find(`meta[property="og:image"]`).AttrOr("content", ""))

	// Prefer the semantic article element; fall back to the whole body.
	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("body")
	}
	var paragraphs []string
	container.Find("p").Each(func(i int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return nil, errors.New("no article text found")
	}

	return &models.SourceContent{
		Title:    title,
		Text:     strings.Join(paragraphs, "\n\n"),
		Byline:   byline,
		ImageURL: image,
	}, nil
}

// Discover collects links on an index page that point to articles on
// the same host. Link text becomes the item title.
func (s *ArticleSource) Discover(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	base, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	doc, err := s.fetchDocument(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var items []models.FeedItem
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link, err := base.Parse(href)
		if err != nil {
			return
		}
		if link.Host != base.Host {
			return
		}
		link.Fragment = ""
		ref := link.String()
		if ref == feedURL || seen[ref] {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}
		seen[ref] = true
		items = append(items, models.FeedItem{Title: title, Ref: ref})
	})
	if len(items) == 0 {
		return nil, errors.New("no article links found")
	}
	return items, nil
}

func (s *ArticleSource) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "podmill/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}
