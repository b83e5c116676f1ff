package services

import (
	"fmt"
	"strings"
	"testing"
)

// paragraphOfWords builds a single paragraph of n distinct words.
func paragraphOfWords(n int, tag string) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", tag, i)
	}
	return strings.Join(words, " ")
}

func TestSplitIntoChunksRespectsWordBudget(t *testing.T) {
	// Six 200-word paragraphs against a 500-word budget: chunks of
	// 400/400/400 words, never crossing the budget.
	var paragraphs []string
	for i := 0; i < 6; i++ {
		paragraphs = append(paragraphs, paragraphOfWords(200, fmt.Sprintf("p%d_", i)))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := SplitIntoChunks(text, 500)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if words := len(strings.Fields(chunk)); words != 400 {
			t.Errorf("chunk %d has %d words, want 400", i, words)
		}
	}
}

func TestSplitIntoChunksNeverSplitsParagraphs(t *testing.T) {
	paragraphs := []string{
		paragraphOfWords(300, "a"),
		paragraphOfWords(300, "b"),
		paragraphOfWords(100, "c"),
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := SplitIntoChunks(text, 500)

	// Every original paragraph must appear intact inside exactly one chunk.
	for i, para := range paragraphs {
		found := 0
		for _, chunk := range chunks {
			if strings.Contains(chunk, para) {
				found++
			}
		}
		if found != 1 {
			t.Errorf("paragraph %d found intact in %d chunks, want 1", i, found)
		}
	}
}

func TestSplitIntoChunksOversizedParagraph(t *testing.T) {
	big := paragraphOfWords(800, "big")
	small := paragraphOfWords(50, "small")
	text := small + "\n\n" + big + "\n\n" + small

	chunks := SplitIntoChunks(text, 500)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1] != big {
		t.Error("oversized paragraph should form its own chunk, unsplit")
	}
}

func TestSplitIntoChunksSingleShortText(t *testing.T) {
	text := "A short reference document.\n\nWith two paragraphs."

	chunks := SplitIntoChunks(text, 500)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "short reference") || !strings.Contains(chunks[0], "two paragraphs") {
		t.Errorf("chunk should carry both paragraphs, got %q", chunks[0])
	}
}

func TestSplitIntoChunksEmptyInput(t *testing.T) {
	if chunks := SplitIntoChunks("", 500); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
	if chunks := SplitIntoChunks("\n\n  \n\n", 500); len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace-only text, got %d", len(chunks))
	}
}

func TestSplitIntoChunksDefaultsBudget(t *testing.T) {
	text := paragraphOfWords(100, "w")

	chunks := SplitIntoChunks(text, 0)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk with the default budget, got %d", len(chunks))
	}
}

func TestSanitizeContent(t *testing.T) {
	input := "line one\x00 with\x01 junk\n\nline two\tkeeps tabs"

	got := SanitizeContent(input)

	if strings.ContainsRune(got, 0) {
		t.Error("NUL byte survived sanitization")
	}
	if !strings.Contains(got, "line one with junk") {
		t.Errorf("control characters should be dropped in place, got %q", got)
	}
	if !strings.Contains(got, "\n\n") {
		t.Error("paragraph break should survive sanitization")
	}
	if !strings.Contains(got, "\t") {
		t.Error("tab should survive sanitization")
	}
}
