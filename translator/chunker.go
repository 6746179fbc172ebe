package translator

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLen is the per-request limit of the primary engine, in characters.
const DefaultMaxLen = 3000

// Chunk is a piece of normalized text tagged with its position for reassembly.
type Chunk struct {
	Index int
	Text  string
}

// Split lazily yields chunks of text no longer than maxLen characters,
// breaking at paragraphs first, then sentences, then at a hard character limit.
// Chunks come out in reading order.
func Split(text string, maxLen int) iter.Seq[Chunk] {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	return func(yield func(Chunk) bool) {
		if utf8.RuneCountInString(text) <= maxLen {
			yield(Chunk{Index: 0, Text: text})
			return
		}

		index := 0
		emit := func(s string) bool {
			ok := yield(Chunk{Index: index, Text: s})
			index++
			return ok
		}

		for _, para := range strings.Split(text, "\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			if utf8.RuneCountInString(para) <= maxLen {
				if !emit(para) {
					return
				}
				continue
			}
			if !splitParagraph(para, maxLen, emit) {
				return
			}
		}

		// Nothing usable survived, hand back the text as is.
		if index == 0 {
			yield(Chunk{Index: 0, Text: text})
		}
	}
}

// SplitAll collects Split into a slice.
func SplitAll(text string, maxLen int) []Chunk {
	var chunks []Chunk
	for c := range Split(text, maxLen) {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitParagraph greedily packs sentences into buffers of at most maxLen characters.
// It returns false when emit asked to stop.
func splitParagraph(para string, maxLen int, emit func(string) bool) bool {
	var current string
	currentLen := 0

	for _, sentence := range splitSentences(para) {
		sentenceLen := utf8.RuneCountInString(sentence)

		candidateLen := sentenceLen
		if current != "" {
			candidateLen = currentLen + 1 + sentenceLen
		}
		if candidateLen <= maxLen {
			if current == "" {
				current = sentence
			} else {
				current = current + " " + sentence
			}
			currentLen = candidateLen
			continue
		}

		if current != "" && !emit(current) {
			return false
		}
		if sentenceLen <= maxLen {
			current, currentLen = sentence, sentenceLen
			continue
		}

		for _, piece := range hardSplit(sentence, maxLen) {
			if !emit(piece) {
				return false
			}
		}
		current, currentLen = "", 0
	}

	if current != "" {
		return emit(current)
	}
	return true
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '؟':
		return true
	}
	return false
}

// splitSentences breaks s at whitespace runs that follow sentence-ending
// punctuation. The punctuation stays with its sentence; the whitespace is dropped.
func splitSentences(s string) []string {
	var sentences []string
	runes := []rune(s)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := string(runes[start : i+1]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}

	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// hardSplit cuts s into consecutive slices of exactly size characters; the last may be shorter.
func hardSplit(s string, size int) []string {
	runes := []rune(s)
	pieces := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[i:end]))
	}
	return pieces
}
