// Package chunking splits document text into bounded-size chunks that keep
// track of where they came from.
package chunking

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrInvalidChunkSize is returned for a non-positive size or an overlap that
// does not fit inside the size.
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// separators are tried in order: paragraph, line, sentence, word, then a hard
// cut at rune boundaries.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Lines is the 1-based inclusive line span of a chunk in its document.
type Lines struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Location maps a chunk back to its document. Start and End are rune offsets
// (End exclusive) and include the overlap prefix.
type Location struct {
	Start   int   `json:"start"`
	End     int   `json:"end"`
	Overlap int   `json:"overlap,omitempty"`
	Lines   Lines `json:"lines"`
}

// Chunk is a contiguous piece of a document.
type Chunk struct {
	Index    int      // Position in document (0, 1, 2...)
	Text     string   // Chunk text, overlap prefix included
	Location Location // Position in the source text
}

// Splitter splits text recursively at the largest natural boundary that keeps
// pieces within the size limit.
type Splitter struct {
	maxSize int
	overlap int
}

// NewSplitter creates a splitter producing chunks of at most maxSize runes,
// each chunk after the first repeating up to overlap runes of the text before it.
func NewSplitter(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size %d", ErrInvalidChunkSize, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d with max size %d", ErrInvalidChunkSize, overlap, maxSize)
	}
	return &Splitter{maxSize: maxSize, overlap: overlap}, nil
}

// MaxSize returns the chunk size limit in runes.
func (s *Splitter) MaxSize() int { return s.maxSize }

// Split breaks text into ordered chunks. Empty text yields no chunks and text
// within the limit yields exactly one.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	var spans []string
	if utf8.RuneCountInString(text) <= s.maxSize {
		spans = []string{text}
	} else {
		spans = splitRecursive(text, separators, s.maxSize-s.overlap)
	}

	chunks := make([]Chunk, 0, len(spans))
	byteStart, runeStart, newlines := 0, 0, 0
	for i, span := range spans {
		spanRunes := utf8.RuneCountInString(span)

		chunkStart, overlap := byteStart, 0
		if i > 0 && s.overlap > 0 {
			chunkStart, overlap = backRunes(text, byteStart, s.overlap)
		}
		chunkText := text[chunkStart : byteStart+len(span)]

		from := 1 + newlines - strings.Count(text[chunkStart:byteStart], "\n")
		to := from + strings.Count(chunkText[:len(chunkText)-1], "\n")

		chunks = append(chunks, Chunk{
			Index: i,
			Text:  chunkText,
			Location: Location{
				Start:   runeStart - overlap,
				End:     runeStart + spanRunes,
				Overlap: overlap,
				Lines:   Lines{From: from, To: to},
			},
		})

		newlines += strings.Count(span, "\n")
		byteStart += len(span)
		runeStart += spanRunes
	}

	return chunks
}

// splitRecursive returns pieces of at most limit runes whose concatenation is text.
func splitRecursive(text string, seps []string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return hardCut(text, limit)
	}

	var (
		out    []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if curLen > 0 {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		n := utf8.RuneCountInString(part)
		if n > limit {
			flush()
			out = append(out, splitRecursive(part, rest, limit)...)
			continue
		}
		if curLen+n > limit {
			flush()
		}
		cur.WriteString(part)
		curLen += n
	}
	flush()

	return out
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" || strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

func hardCut(text string, limit int) []string {
	var out []string
	start, n := 0, 0
	for i := range text {
		if n == limit {
			out = append(out, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(out, text[start:])
}

// backRunes steps back up to n runes from byte offset end and returns the new
// byte offset and the number of runes stepped over.
func backRunes(text string, end, n int) (int, int) {
	i, stepped := end, 0
	for stepped < n && i > 0 {
		_, size := utf8.DecodeLastRuneInString(text[:i])
		i -= size
		stepped++
	}
	return i, stepped
}
