package services

import (
	"regexp"
	"strings"
)

var paragraphSplitter = regexp.MustCompile(`\n{2,}`)

// SplitIntoChunks breaks text into paragraph-respecting chunks bounded by a
// word budget. Whole paragraphs accumulate into the running chunk; when the
// next paragraph would exceed the budget the chunk is closed and a new one
// starts. Paragraphs are never split, so a single paragraph over the budget
// still forms its own oversized chunk.
func SplitIntoChunks(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = 500
	}

	var paragraphs []string
	for _, para := range paragraphSplitter.Split(text, -1) {
		if para = strings.TrimSpace(para); para != "" {
			paragraphs = append(paragraphs, para)
		}
	}

	var chunks []string
	var current strings.Builder
	currentWords := 0

	for _, para := range paragraphs {
		paraWords := len(strings.Fields(para))

		if currentWords+paraWords > maxWords && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentWords = 0
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentWords += paraWords
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// SanitizeContent strips NUL bytes and other control characters before a
// chunk is persisted. Postgres TEXT columns reject NUL outright.
func SanitizeContent(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return r
		case r < 0x20 || r == 0x7F:
			return -1
		default:
			return r
		}
	}, text)

	return strings.TrimSpace(cleaned)
}
