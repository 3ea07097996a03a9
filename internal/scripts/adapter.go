package scripts

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/podmill/podmill-go/internal/models"
)

// ScriptSourceAdapter adapts a script runtime to the Source interface.
type ScriptSourceAdapter struct {
	runtime *ScriptRuntime
}

// ScriptFeedAdapter is a ScriptSourceAdapter whose script declared the
// discover capability; it additionally satisfies Discoverer.
type ScriptFeedAdapter struct {
	*ScriptSourceAdapter
}

// NewAdapter wraps a runtime in the narrowest adapter its manifest
// allows: a plain source, or a discoverable one.
func NewAdapter(runtime *ScriptRuntime) models.Source {
	base := &ScriptSourceAdapter{runtime: runtime}
	if runtime.Manifest().Capabilities["discover"] {
		return &ScriptFeedAdapter{ScriptSourceAdapter: base}
	}
	return base
}

func (a *ScriptSourceAdapter) Info() models.SourceInfo {
	m := a.runtime.Manifest()
	name := m.Name
	if name == "" {
		name = m.ID
	}
	return models.SourceInfo{
		ID:          m.ID,
		Name:        name,
		Description: m.Description,
	}
}

func (a *ScriptSourceAdapter) Fetch(ctx context.Context, ref string) (*models.SourceContent, error) {
	val, err := a.runtime.CallWithContext(ctx, "fetchContent", ref)
	if err != nil {
		return nil, err
	}

	obj, err := a.exportObject(val, "fetchContent")
	if err != nil {
		return nil, err
	}

	content := &models.SourceContent{
		Title:    getString(obj, "title"),
		Text:     getString(obj, "text"),
		Byline:   getString(obj, "byline"),
		ImageURL: getString(obj, "imageUrl"),
	}
	if content.Text == "" {
		return nil, &ScriptError{
			ScriptID: a.runtime.Manifest().ID,
			Function: "fetchContent",
			Message:  "returned content has no text",
		}
	}
	return content, nil
}

func (a *ScriptFeedAdapter) Discover(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	val, err := a.runtime.CallWithContext(ctx, "discover", feedURL)
	if err != nil {
		return nil, err
	}

	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return []models.FeedItem{}, nil
	}
	exported := val.Export()
	arr, ok := exported.([]interface{})
	if !ok {
		return nil, &ScriptError{
			ScriptID: a.runtime.Manifest().ID,
			Function: "discover",
			Message:  fmt.Sprintf("expected an array, got %T", exported),
		}
	}

	items := make([]models.FeedItem, 0, len(arr))
	for _, itemInterface := range arr {
		itemMap, ok := itemInterface.(map[string]interface{})
		if !ok {
			continue
		}
		item := models.FeedItem{
			Title: getString(itemMap, "title"),
			Ref:   getString(itemMap, "ref"),
		}
		if publishedStr := getString(itemMap, "publishedAt"); publishedStr != "" {
			if parsed, err := time.Parse(time.RFC3339, publishedStr); err == nil {
				item.PublishedAt = parsed
			}
		}
		if item.Ref == "" {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (a *ScriptSourceAdapter) exportObject(val goja.Value, function string) (map[string]interface{}, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, &ScriptError{
			ScriptID: a.runtime.Manifest().ID,
			Function: function,
			Message:  "returned null or undefined",
		}
	}
	exported := val.Export()
	obj, ok := exported.(map[string]interface{})
	if !ok {
		return nil, &ScriptError{
			ScriptID: a.runtime.Manifest().ID,
			Function: function,
			Message:  fmt.Sprintf("expected an object, got %T", exported),
		}
	}
	return obj, nil
}

func getString(m map[string]interface{}, key string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", val)
}
