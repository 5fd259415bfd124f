package course_test

import (
	"context"
	"testing"

	"github.com/lectern-ai/lectern/internal/course"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/testutil"
)

// embeddingDim matches the vector(768) column in db/migrations.
const embeddingDim = 768

func setupStore(t *testing.T) *course.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	container, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	embedder := testutil.NewMockEmbedder(embeddingDim)
	return course.NewStore(course.NewQueries(container.Pool), embedder, log.NewNop(), 5)
}

func testCourse() (course.Course, []course.Chunk) {
	one := 1
	c := course.Course{
		Title:      "Intro to Vectors",
		Link:       "https://example.com/vectors",
		Instructor: "Grace",
		Lessons: []course.Lesson{
			{Number: 0, Title: "Basics", Link: "https://example.com/vectors/0"},
			{Number: 1, Title: "Distances", Link: "https://example.com/vectors/1"},
		},
	}
	chunks := []course.Chunk{
		{Content: "Vectors have magnitude and direction.", LessonNumber: &one, Index: 0},
		{Content: "Cosine distance measures angle between vectors.", LessonNumber: &one, Index: 1},
	}
	return c, chunks
}

func TestStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	c, chunks := testCourse()
	if err := store.AddCourse(ctx, c, chunks); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	// Partial, case-insensitive course resolution.
	outline, err := store.Outline(ctx, "vectors")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if outline.Title != "Intro to Vectors" || len(outline.Lessons) != 2 {
		t.Errorf("outline = %+v", outline)
	}

	matches, err := store.Search(ctx, "cosine distance", "Intro", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	for _, m := range matches {
		if m.CourseTitle != "Intro to Vectors" {
			t.Errorf("match title = %q", m.CourseTitle)
		}
	}

	link, err := store.LessonLink(ctx, "Intro to Vectors", 1)
	if err != nil {
		t.Fatalf("LessonLink: %v", err)
	}
	if link != "https://example.com/vectors/1" {
		t.Errorf("link = %q", link)
	}

	analytics, err := store.Analytics(ctx)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if analytics.TotalCourses != 1 || analytics.CourseTitles[0] != "Intro to Vectors" {
		t.Errorf("analytics = %+v", analytics)
	}
}

func TestStoreSearchUnknownCourseIntegration(t *testing.T) {
	store := setupStore(t)

	_, err := store.Search(context.Background(), "anything", "No Such Course", nil)
	if err == nil {
		t.Fatal("expected NotFoundError")
	}
	if err.Error() != "No course found matching 'No Such Course'" {
		t.Errorf("err = %q", err.Error())
	}
}

func TestStoreReingestIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	c, chunks := testCourse()
	if err := store.AddCourse(ctx, c, chunks); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	// Re-adding upserts the course and lessons rather than failing.
	if err := store.AddCourse(ctx, c, nil); err != nil {
		t.Fatalf("AddCourse again: %v", err)
	}

	analytics, err := store.Analytics(ctx)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if analytics.TotalCourses != 1 {
		t.Errorf("total courses = %d, want 1", analytics.TotalCourses)
	}
}
