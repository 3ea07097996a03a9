// The text source narrates plain text: either an inline payload in the
// reference itself ("text:" prefix) or a .txt/.md file from the inbox.
package text

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/util"
)

// InlinePrefix marks a reference whose payload is the text itself.
const InlinePrefix = "text:"

type TextSource struct {
	inboxDir string
}

func New(inboxDir string) *TextSource {
	return &TextSource{inboxDir: inboxDir}
}

func (s *TextSource) Info() models.SourceInfo {
	return models.SourceInfo{
		ID:          "text",
		Name:        "Plain Text",
		Description: "Narrates inline text or text files from the inbox",
	}
}

func (s *TextSource) Fetch(ctx context.Context, ref string) (*models.SourceContent, error) {
	if strings.HasPrefix(ref, InlinePrefix) {
		body := strings.TrimSpace(strings.TrimPrefix(ref, InlinePrefix))
		if body == "" {
			return nil, errors.New("inline text payload is empty")
		}
		return &models.SourceContent{Text: body}, nil
	}

	switch strings.ToLower(filepath.Ext(ref)) {
	case ".txt", ".md":
	default:
		return nil, fmt.Errorf("unsupported text file type: %s", ref)
	}

	path, err := util.ResolveInboxFile(s.inboxDir, ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(string(data))
	if body == "" {
		return nil, errors.New("text file is empty")
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return &models.SourceContent{Title: title, Text: body}, nil
}
