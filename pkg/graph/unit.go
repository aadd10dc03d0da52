package graph

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/OFFIS-RIT/findet/pkg/logger"
)

// charsPerToken approximates one token as four characters. It keeps the
// chunker independent of any tokenizer and is not an exact count.
const charsPerToken = 4

var (
	paragraphBreak = regexp.MustCompile(`\n\n+`)
	sentenceBreak  = regexp.MustCompile(`[.!?]\s+`)
	wordBreak      = regexp.MustCompile(`\s+`)
)

// EstimateTokens returns the approximate token count of text.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / charsPerToken
}

// SplitText splits text into overlapping chunks of roughly chunkSize tokens,
// cutting at paragraph, sentence or word boundaries where possible.
//
// Text that fits into one chunk is returned unmodified as the only element.
// Empty or whitespace-only text yields no chunks, and windows that hold only
// whitespace are skipped, so they never count as chunks.
//
// The next window starts overlap tokens before the end of the trimmed chunk,
// not the end of the raw window. No sentence is lost between chunks, at the
// cost of more chunks than a cursor placed on the window end would produce.
func SplitText(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, invalidArgument("chunk size must be positive")
	}
	if overlap < 0 {
		return nil, invalidArgument("overlap must be non-negative")
	}
	if overlap >= chunkSize {
		return nil, invalidArgument("overlap must be less than chunk size")
	}

	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	if EstimateTokens(text) <= chunkSize {
		return []string{text}, nil
	}

	runes := []rune(text)
	chunkChars := chunkSize * charsPerToken
	overlapChars := overlap * charsPerToken

	chunks := make([]string, 0, len(runes)/chunkChars+1)
	pos := 0
	for pos < len(runes) {
		end := min(pos+chunkChars, len(runes))
		window := string(runes[pos:end])

		if end < len(runes) {
			end = pos + splitAtBoundary(window)
			window = string(runes[pos:end])
		}

		if chunk := strings.TrimSpace(window); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		next := end - overlapChars
		if next <= pos {
			next = end
		}
		pos = next
	}

	logger.Debug("[Chunker] Split text", "tokens", EstimateTokens(text), "chunks", len(chunks))

	return chunks, nil
}

// splitAtBoundary returns the rune length of the prefix of window that ends
// at the best natural boundary. It returns the full length when no boundary
// is found.
func splitAtBoundary(window string) int {
	if m := paragraphBreak.FindAllStringIndex(window, -1); len(m) > 0 {
		last := m[len(m)-1]
		if strings.TrimSpace(window[:last[0]]) != "" {
			return utf8.RuneCountInString(window[:last[1]])
		}
	}

	if m := sentenceBreak.FindAllStringIndex(window, -1); len(m) > 0 {
		// keep the last sentence as trailing context for the next chunk
		pick := m[len(m)-1]
		if len(m) >= 2 {
			pick = m[len(m)-2]
		}
		return utf8.RuneCountInString(window[:pick[1]])
	}

	if m := wordBreak.FindAllStringIndex(window, -1); len(m) > 10 {
		pick := m[int(float64(len(m))*0.8)]
		return utf8.RuneCountInString(window[:pick[1]])
	}

	return utf8.RuneCountInString(window)
}
