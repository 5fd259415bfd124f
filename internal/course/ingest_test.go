package course

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lectern-ai/lectern/internal/log"
)

type fakeIngestStore struct {
	titles  []string
	added   []Course
	cleared bool
}

func (f *fakeIngestStore) ExistingTitles(_ context.Context) ([]string, error) {
	return f.titles, nil
}

func (f *fakeIngestStore) AddCourse(_ context.Context, course Course, _ []Chunk) error {
	f.added = append(f.added, course)
	return nil
}

func (f *fakeIngestStore) DeleteAll(_ context.Context) error {
	f.cleared = true
	return nil
}

func writeDoc(t *testing.T, dir, name, title string) {
	t.Helper()
	content := "Course Title: " + title + "\n" +
		"Course Link: https://example.com\n" +
		"Course Instructor: Someone\n" +
		"Lesson 0: Intro\n" +
		"Some lesson content goes here.\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAddFolder(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "one.txt", "Course One")
	writeDoc(t, dir, "two.md", "Course Two")
	if err := os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("binary"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := &fakeIngestStore{}
	ing := NewIngestor(store, log.NewNop(), 800, 100)

	result, err := ing.AddFolder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("AddFolder: %v", err)
	}

	if result.CoursesAdded != 2 {
		t.Errorf("courses added = %d, want 2", result.CoursesAdded)
	}
	if result.ChunksAdded == 0 {
		t.Error("no chunks added")
	}
	if len(store.added) != 2 {
		t.Errorf("stored courses = %d", len(store.added))
	}
	if store.cleared {
		t.Error("catalog cleared without clearExisting")
	}
}

func TestAddFolderSkipsExistingTitles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "one.txt", "Course One")
	writeDoc(t, dir, "two.txt", "Course Two")

	store := &fakeIngestStore{titles: []string{"Course One"}}
	ing := NewIngestor(store, log.NewNop(), 800, 100)

	result, err := ing.AddFolder(context.Background(), dir, false)
	if err != nil {
		t.Fatalf("AddFolder: %v", err)
	}

	if result.CoursesAdded != 1 {
		t.Errorf("courses added = %d, want 1", result.CoursesAdded)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if len(store.added) != 1 || store.added[0].Title != "Course Two" {
		t.Errorf("stored = %+v", store.added)
	}
}

func TestAddFolderClearExisting(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "one.txt", "Course One")

	store := &fakeIngestStore{}
	ing := NewIngestor(store, log.NewNop(), 800, 100)

	if _, err := ing.AddFolder(context.Background(), dir, true); err != nil {
		t.Fatalf("AddFolder: %v", err)
	}
	if !store.cleared {
		t.Error("catalog not cleared")
	}
}

func TestAddFolderMissingDir(t *testing.T) {
	ing := NewIngestor(&fakeIngestStore{}, log.NewNop(), 800, 100)
	if _, err := ing.AddFolder(context.Background(), "/nonexistent/path", false); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestAddFileSkipsDuplicate(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "one.txt", "Course One")

	store := &fakeIngestStore{titles: []string{"Course One"}}
	ing := NewIngestor(store, log.NewNop(), 800, 100)

	doc, err := ing.AddFile(context.Background(), filepath.Join(dir, "one.txt"))
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if doc.Course.Title != "Course One" {
		t.Errorf("title = %q", doc.Course.Title)
	}
	if len(store.added) != 0 {
		t.Errorf("stored = %+v, want none", store.added)
	}
}
