// Package generator runs the podcast generation pipeline: it claims
// queued podcasts, fetches their source content, composes a narration
// script and synthesizes the audio artifact.
package generator

import (
	"fmt"
	"strings"

	"github.com/podmill/podmill-go/internal/models"
)

// maxChunkWords caps how much text a single synthesis segment carries.
// Smaller chunks give finer progress reporting during synthesis.
const maxChunkWords = 80

// composeNarration turns fetched source content into the ordered
// narration chunks the synthesizer will voice, framed by an intro and
// outro line. The joined chunks double as the episode transcript.
func composeNarration(content *models.SourceContent, title string) []string {
	intro := fmt.Sprintf("Welcome to %s.", title)
	if content.Byline != "" {
		intro += fmt.Sprintf(" Written by %s.", content.Byline)
	}

	chunks := []string{intro}
	for _, paragraph := range strings.Split(content.Text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		chunks = append(chunks, splitChunk(paragraph)...)
	}
	chunks = append(chunks, fmt.Sprintf("That was %s. Thanks for listening.", title))
	return chunks
}

// splitChunk breaks an oversized paragraph into word-bounded pieces.
func splitChunk(paragraph string) []string {
	words := strings.Fields(paragraph)
	if len(words) <= maxChunkWords {
		return []string{paragraph}
	}

	var out []string
	for start := 0; start < len(words); start += maxChunkWords {
		end := start + maxChunkWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
