// Package chunker splits converted document text into overlapping,
// sentence-aligned chunks for embedding.
package chunker

import (
	"fmt"

	"github.com/Rain-kl/cyber-kb/internal/models"
)

// Defaults used by the processing pipeline. Sizes are in runes so multi-byte
// punctuation counts the same as ASCII.
const (
	DefaultChunkSize = 3000
	DefaultOverlap   = 500
)

var sentenceEnders = map[rune]struct{}{
	'.': {}, '?': {}, '!': {}, '。': {}, '？': {}, '！': {}, '\n': {},
}

// Split cuts text into chunks of at most chunkSize runes, each ending at a
// sentence boundary when one exists inside the window, with consecutive
// chunks overlapping by up to overlap runes.
//
// Guarantees: non-empty input yields at least one chunk; chunks appear in
// reading order; the cursor always advances, so the loop terminates.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= overlap {
		return nil, fmt.Errorf("%w: chunk_size (%d) must be greater than overlap (%d)",
			models.ErrInvalidArgument, chunkSize, overlap)
	}
	if text == "" {
		return []string{}, nil
	}

	runes := []rune(text)
	textLength := len(runes)

	var chunks []string
	startIndex := 0

	for startIndex < textLength {
		idealEndIndex := startIndex + chunkSize
		if idealEndIndex > textLength {
			idealEndIndex = textLength
		}

		actualEndIndex := idealEndIndex
		if idealEndIndex < textLength {
			foundEnder := false
			for i := idealEndIndex - 1; i >= startIndex; i-- {
				if _, ok := sentenceEnders[runes[i]]; ok {
					actualEndIndex = i + 1 // include the punctuation mark
					foundEnder = true
					break
				}
			}
			if !foundEnder {
				actualEndIndex = idealEndIndex
			}
		}

		if actualEndIndex > startIndex {
			chunks = append(chunks, string(runes[startIndex:actualEndIndex]))
		}

		if actualEndIndex >= textLength {
			break
		}

		nextStartIndex := actualEndIndex - overlap
		if nextStartIndex <= startIndex {
			// Stalled: the sentence boundary fell inside the overlap window.
			startIndex++
		} else {
			startIndex = nextStartIndex
		}
		if startIndex > textLength {
			startIndex = textLength
		}
	}

	return chunks, nil
}
