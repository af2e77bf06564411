// Package chunker splits extracted document text into overlapping segments
// sized for embedding.
//
// The splitter walks an ordered separator list (paragraph, line, space, hard
// cut) and recursively splits on the coarsest separator that appears, merging
// small pieces back together up to the configured size with trailing overlap
// carried into the next segment. The output is a lazy, restartable sequence:
// iterating it twice produces identical segments, and an empty input yields
// zero segments without error.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// DefaultSeparators orders split boundaries from coarsest to finest.
// The trailing empty string means "hard cut at size" and must stay last so
// splitting always terminates.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

var (
	// ErrInvalidSize indicates a non-positive chunk size.
	ErrInvalidSize = errors.New("chunk size must be positive")

	// ErrOverlapTooLarge indicates overlap >= size, which would never make
	// forward progress when sliding the window.
	ErrOverlapTooLarge = errors.New("chunk overlap must be smaller than chunk size")
)

// Config controls segment size and overlap. Validate rejects bad
// combinations at configuration time; Split never checks mid-run.
type Config struct {
	// Size is the target maximum segment length in bytes. Default 1000.
	Size int

	// Overlap is the number of trailing bytes shared with the next segment.
	// Must be < Size. Default 200.
	Overlap int

	// Separators overrides DefaultSeparators when non-nil.
	Separators []string
}

// DefaultConfig returns the standard chunking configuration.
func DefaultConfig() Config {
	return Config{Size: 1000, Overlap: 200}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap %d, size %d", ErrOverlapTooLarge, c.Overlap, c.Size)
	}
	return nil
}

func (c Config) separators() []string {
	if c.Separators != nil {
		return c.Separators
	}
	return DefaultSeparators
}

// Piece is one segment of the input text.
type Piece struct {
	// Ordinal is the zero-based position within the document.
	Ordinal int

	// Content is the segment text.
	Content string
}

// Split returns the segments of text as a lazy sequence. The work happens
// when the sequence is iterated; ranging it again restarts from the first
// segment. The caller must have validated cfg.
//
// A segment can exceed cfg.Size only when a single unsplittable run (no
// separator applies and the hard-cut separator was removed from the list)
// is longer than the size.
func Split(text string, cfg Config) iter.Seq[Piece] {
	return func(yield func(Piece) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		ordinal := 0
		for _, content := range splitText(text, cfg.separators(), cfg) {
			if !yield(Piece{Ordinal: ordinal, Content: content}) {
				return
			}
			ordinal++
		}
	}
}

// Count iterates the sequence and returns the number of segments.
func Count(text string, cfg Config) int {
	n := 0
	for range Split(text, cfg) {
		n++
	}
	return n
}

// splitText recursively splits text on the coarsest applicable separator,
// then merges the resulting pieces into size-bounded, overlapping segments.
func splitText(text string, separators []string, cfg Config) []string {
	// Pick the first separator present in the text. The empty separator
	// always applies and triggers the hard-cut path.
	sep := ""
	remaining := []string{}
	for i, s := range separators {
		if s == "" {
			sep = ""
			remaining = nil
			break
		}
		if strings.Contains(text, s) {
			sep = s
			remaining = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return hardCut(text, cfg)
	}

	splits := strings.Split(text, sep)

	// Pieces still longer than Size recurse on the finer separators; the
	// short ones around them are merged into bounded segments.
	var segments []string
	var good []string
	for _, piece := range splits {
		if len(piece) <= cfg.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			segments = append(segments, mergeSplits(good, sep, cfg)...)
			good = nil
		}
		segments = append(segments, splitText(piece, remaining, cfg)...)
	}
	if len(good) > 0 {
		segments = append(segments, mergeSplits(good, sep, cfg)...)
	}
	return segments
}

// hardCut slides a fixed window over text. Consecutive segments share
// exactly cfg.Overlap bytes.
func hardCut(text string, cfg Config) []string {
	if len(text) <= cfg.Size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	step := cfg.Size - cfg.Overlap
	var segments []string
	for start := 0; start < len(text); start += step {
		end := min(start+cfg.Size, len(text))
		segments = append(segments, text[start:end])
		if end == len(text) {
			break
		}
	}
	return segments
}

// mergeSplits combines separator-delimited pieces into segments no longer
// than cfg.Size, rejoined with the separator. When a segment closes, pieces
// from its tail totalling at most cfg.Overlap bytes seed the next segment.
func mergeSplits(splits []string, sep string, cfg Config) []string {
	var segments []string
	var window []string
	total := 0

	joinedLen := func(extra int) int {
		n := total + extra
		if len(window) > 0 {
			n += len(sep) * len(window) // separator before extra and between window items
		}
		return n
	}

	flush := func() {
		seg := strings.TrimSpace(strings.Join(window, sep))
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	for _, piece := range splits {
		if len(window) > 0 && joinedLen(len(piece)) > cfg.Size {
			flush()
			// Retain the tail of the window as overlap for the next segment,
			// dropping further if the new piece still would not fit.
			for len(window) > 0 && (total > cfg.Overlap || joinedLen(len(piece)) > cfg.Size) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	flush()
	return segments
}
