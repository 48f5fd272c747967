package knowledge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

var (
	// ErrCorpusNotFound indicates the corpus file does not exist.
	ErrCorpusNotFound = errors.New("knowledge corpus file not found")

	// ErrUnsupportedFormat indicates a corpus file that is not plain text.
	ErrUnsupportedFormat = errors.New("knowledge corpus must be a .txt file")

	// ErrEmptyCorpus indicates a corpus with no indexable content.
	ErrEmptyCorpus = errors.New("knowledge corpus is empty")
)

// LoadCorpus reads the knowledge base text file. Missing files and
// non-.txt paths are fatal, never degraded.
func LoadCorpus(path string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".txt" {
		return "", fmt.Errorf("%w: got %q", ErrUnsupportedFormat, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrCorpusNotFound, path)
		}
		return "", fmt.Errorf("reading corpus %s: %w", path, err)
	}
	return string(content), nil
}

// SplitCorpus splits corpus text into overlapping chunks, preferring
// paragraph, then line, then word boundaries.
func SplitCorpus(corpus string, chunkSize, chunkOverlap int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)

	chunks, err := splitter.SplitText(corpus)
	if err != nil {
		return nil, fmt.Errorf("splitting corpus: %w", err)
	}

	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCorpus
	}
	return out, nil
}
