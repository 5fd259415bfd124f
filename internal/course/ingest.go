package course

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-ai/lectern/internal/log"
)

// IngestStore defines the catalog operations the ingestor depends on.
type IngestStore interface {
	ExistingTitles(ctx context.Context) ([]string, error)
	AddCourse(ctx context.Context, course Course, chunks []Chunk) error
	DeleteAll(ctx context.Context) error
}

// Ingestor loads course documents from disk into the catalog.
type Ingestor struct {
	store        IngestStore
	logger       log.Logger
	chunkSize    int
	chunkOverlap int
}

// NewIngestor creates an Ingestor with the given chunking parameters.
func NewIngestor(store IngestStore, logger log.Logger, chunkSize, chunkOverlap int) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{
		store:        store,
		logger:       logger,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// IngestResult summarizes one folder ingestion run.
type IngestResult struct {
	CoursesAdded int
	ChunksAdded  int
	Skipped      int
}

// AddFolder ingests every .txt and .md file directly inside dir. Courses
// whose title already exists in the catalog are skipped, so repeated runs
// are cheap. When clearExisting is true the catalog is wiped first.
func (ing *Ingestor) AddFolder(ctx context.Context, dir string, clearExisting bool) (*IngestResult, error) {
	if clearExisting {
		if err := ing.store.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("clear catalog: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	titles, err := ing.store.ExistingTitles(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(titles))
	for _, t := range titles {
		existing[t] = true
	}

	result := &IngestResult{}
	for _, entry := range entries {
		if entry.IsDir() || !courseFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		doc, err := ing.parseFile(path)
		if err != nil {
			ing.logger.Warn("skipping unreadable document", "path", path, "error", err)
			continue
		}

		if existing[doc.Course.Title] {
			ing.logger.Debug("course already ingested", "title", doc.Course.Title)
			result.Skipped++
			continue
		}

		if err := ing.store.AddCourse(ctx, doc.Course, doc.Chunks); err != nil {
			return result, fmt.Errorf("ingest %q: %w", path, err)
		}
		existing[doc.Course.Title] = true
		result.CoursesAdded++
		result.ChunksAdded += len(doc.Chunks)
	}

	ing.logger.Info("folder ingested",
		"dir", dir,
		"courses_added", result.CoursesAdded,
		"chunks_added", result.ChunksAdded,
		"skipped", result.Skipped,
	)
	return result, nil
}

// AddFile ingests a single course document, skipping it when the title is
// already present.
func (ing *Ingestor) AddFile(ctx context.Context, path string) (*ParsedDocument, error) {
	doc, err := ing.parseFile(path)
	if err != nil {
		return nil, err
	}

	titles, err := ing.store.ExistingTitles(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range titles {
		if t == doc.Course.Title {
			return doc, nil
		}
	}

	if err := ing.store.AddCourse(ctx, doc.Course, doc.Chunks); err != nil {
		return nil, fmt.Errorf("ingest %q: %w", path, err)
	}
	return doc, nil
}

func (ing *Ingestor) parseFile(path string) (*ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseDocument(string(data), fallback, ing.chunkSize, ing.chunkOverlap)
}

func courseFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
