// The document source narrates PDF files dropped into the artifacts
// inbox. References are file names relative to the inbox directory.
package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/podmill/podmill-go/internal/models"
	"github.com/podmill/podmill-go/internal/util"
)

type DocumentSource struct {
	inboxDir string
}

func New(inboxDir string) *DocumentSource {
	return &DocumentSource{inboxDir: inboxDir}
}

func (s *DocumentSource) Info() models.SourceInfo {
	return models.SourceInfo{
		ID:          "document",
		Name:        "PDF Document",
		Description: "Narrates PDF documents from the inbox",
	}
}

func (s *DocumentSource) Fetch(ctx context.Context, ref string) (*models.SourceContent, error) {
	path, err := util.ResolveInboxFile(s.inboxDir, ref)
	if err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("could not open document: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		text, err := doc.Text(n)
		if err != nil {
			return nil, fmt.Errorf("could not extract text from page %d: %w", n+1, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	body := strings.TrimSpace(sb.String())
	if body == "" {
		return nil, errors.New("document contains no extractable text")
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return &models.SourceContent{Title: title, Text: body}, nil
}
