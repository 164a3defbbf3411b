package indexer

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter is a recursive character splitter. Text is cut on the coarsest
// separator present; a finer separator is only applied to pieces that still
// exceed ChunkSize. Pieces are then merged back into windows of at most
// ChunkSize characters, consecutive windows sharing up to Overlap characters.
// Separators stay attached to the start of the following piece.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 2000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap, Separators: DefaultSeparators}
}

// Split returns the chunks of text. Whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) []string {
	seps := s.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	return s.split(text, seps)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var (
		chunks []string
		good   []string
	)
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good)...)
			good = nil
		}
		if len(finer) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, finer)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good)...)
	}
	return chunks
}

// merge packs pieces into windows. Pieces already carry their separator so
// they are joined with nothing.
func (s *Splitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.ChunkSize && len(current) > 0 {
			if doc := joinTrimmed(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.Overlap || (total+n > s.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := joinTrimmed(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func joinTrimmed(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
