package generator

import (
	"strings"
	"testing"

	"github.com/podmill/podmill-go/internal/models"
)

func TestComposeNarration(t *testing.T) {
	content := &models.SourceContent{
		Title:  "Launch Day",
		Text:   "First paragraph.\n\nSecond paragraph.",
		Byline: "Ada Lovelace",
	}

	chunks := composeNarration(content, "Launch Day")
	if len(chunks) != 4 {
		t.Fatalf("Expected intro, two paragraphs and outro, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0], "Welcome to Launch Day.") {
		t.Errorf("Intro is missing the title: %q", chunks[0])
	}
	if !strings.Contains(chunks[0], "Written by Ada Lovelace.") {
		t.Errorf("Intro is missing the byline: %q", chunks[0])
	}
	if chunks[1] != "First paragraph." || chunks[2] != "Second paragraph." {
		t.Errorf("Paragraphs not carried through: %q, %q", chunks[1], chunks[2])
	}
	if !strings.Contains(chunks[3], "Thanks for listening.") {
		t.Errorf("Outro missing: %q", chunks[3])
	}
}

func TestComposeNarrationWithoutByline(t *testing.T) {
	content := &models.SourceContent{Text: "Body."}
	chunks := composeNarration(content, "Untitled episode")
	if strings.Contains(chunks[0], "Written by") {
		t.Errorf("Intro must not mention a byline when none exists: %q", chunks[0])
	}
}

func TestComposeNarrationSkipsBlankParagraphs(t *testing.T) {
	content := &models.SourceContent{Text: "One.\n\n   \n\nTwo."}
	chunks := composeNarration(content, "Gaps")
	if len(chunks) != 4 {
		t.Fatalf("Blank paragraphs must be dropped, got %d chunks", len(chunks))
	}
}

func TestSplitChunkCapsWords(t *testing.T) {
	words := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		words = append(words, "word")
	}
	paragraph := strings.Join(words, " ")

	chunks := splitChunk(paragraph)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks for 200 words, got %d", len(chunks))
	}
	total := 0
	for _, chunk := range chunks {
		n := len(strings.Fields(chunk))
		if n > maxChunkWords {
			t.Errorf("Chunk exceeds the word cap: %d words", n)
		}
		total += n
	}
	if total != 200 {
		t.Errorf("Chunking dropped words: %d of 200 remain", total)
	}
}
