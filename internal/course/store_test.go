package course

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/testutil"
)

// fakeQuerier implements Querier with scripted results and recorded calls.
type fakeQuerier struct {
	searchRows   []SearchChunksRow
	searchErr    error
	searchParams []SearchChunksParams

	resolveRow ResolveCourseRow
	resolveErr error
	resolved   []string

	lessons    []CourseLessonsRow
	lessonLink string
	linkErr    error

	count  int64
	titles []string

	upsertedCourses []UpsertCourseParams
	insertedLessons []InsertLessonParams
	insertedChunks  []InsertChunkParams
	deletedAll      bool
}

func (f *fakeQuerier) UpsertCourse(_ context.Context, arg UpsertCourseParams) (pgtype.UUID, error) {
	f.upsertedCourses = append(f.upsertedCourses, arg)
	return pgtype.UUID{Bytes: [16]byte{1}, Valid: true}, nil
}

func (f *fakeQuerier) InsertLesson(_ context.Context, arg InsertLessonParams) error {
	f.insertedLessons = append(f.insertedLessons, arg)
	return nil
}

func (f *fakeQuerier) InsertChunk(_ context.Context, arg InsertChunkParams) error {
	f.insertedChunks = append(f.insertedChunks, arg)
	return nil
}

func (f *fakeQuerier) SearchChunks(_ context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	f.searchParams = append(f.searchParams, arg)
	return f.searchRows, f.searchErr
}

func (f *fakeQuerier) ResolveCourse(_ context.Context, name string) (ResolveCourseRow, error) {
	f.resolved = append(f.resolved, name)
	return f.resolveRow, f.resolveErr
}

func (f *fakeQuerier) CourseLessons(_ context.Context, _ pgtype.UUID) ([]CourseLessonsRow, error) {
	return f.lessons, nil
}

func (f *fakeQuerier) GetLessonLink(_ context.Context, _ GetLessonLinkParams) (string, error) {
	return f.lessonLink, f.linkErr
}

func (f *fakeQuerier) CountCourses(_ context.Context) (int64, error) {
	return f.count, nil
}

func (f *fakeQuerier) ListCourseTitles(_ context.Context) ([]string, error) {
	return f.titles, nil
}

func (f *fakeQuerier) DeleteAllCourses(_ context.Context) error {
	f.deletedAll = true
	return nil
}

func newTestStore(q Querier) *Store {
	return NewStore(q, testutil.NewMockEmbedder(8), log.NewNop(), 5)
}

func intPtr(n int) *int { return &n }

func TestSearchWithoutFilters(t *testing.T) {
	q := &fakeQuerier{
		searchRows: []SearchChunksRow{
			{Content: "chunk one", CourseTitle: "Course A", LessonNumber: pgtype.Int4{Int32: 1, Valid: true}},
			{Content: "chunk two", CourseTitle: "Course B"},
		},
	}
	store := newTestStore(q)

	matches, err := store.Search(context.Background(), "test query", "", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].CourseTitle != "Course A" || matches[0].LessonNumber == nil || *matches[0].LessonNumber != 1 {
		t.Errorf("match 0 = %+v", matches[0])
	}
	if matches[1].LessonNumber != nil {
		t.Errorf("match 1 lesson = %v, want nil", *matches[1].LessonNumber)
	}

	// No course filter means no resolution and a NULL course filter.
	if len(q.resolved) != 0 {
		t.Errorf("resolved = %v, want none", q.resolved)
	}
	params := q.searchParams[0]
	if params.CourseID.Valid {
		t.Error("course filter should be NULL")
	}
	if params.LessonNumber.Valid {
		t.Error("lesson filter should be NULL")
	}
	if params.ResultLimit != 5 {
		t.Errorf("limit = %d, want 5", params.ResultLimit)
	}
}

func TestSearchWithCourseAndLessonFilters(t *testing.T) {
	q := &fakeQuerier{
		resolveRow: ResolveCourseRow{ID: pgtype.UUID{Bytes: [16]byte{7}, Valid: true}, Title: "MCP Basics"},
	}
	store := newTestStore(q)

	if _, err := store.Search(context.Background(), "query", "MCP", intPtr(2)); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(q.resolved) != 1 || q.resolved[0] != "MCP" {
		t.Errorf("resolved = %v", q.resolved)
	}
	params := q.searchParams[0]
	if !params.CourseID.Valid {
		t.Error("course filter missing")
	}
	if !params.LessonNumber.Valid || params.LessonNumber.Int32 != 2 {
		t.Errorf("lesson filter = %+v", params.LessonNumber)
	}
}

func TestSearchUnknownCourse(t *testing.T) {
	q := &fakeQuerier{resolveErr: pgx.ErrNoRows}
	store := newTestStore(q)

	_, err := store.Search(context.Background(), "query", "Nonexistent", nil)

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if notFound.Error() != "No course found matching 'Nonexistent'" {
		t.Errorf("message = %q", notFound.Error())
	}
}

func TestSearchQueryError(t *testing.T) {
	q := &fakeQuerier{searchErr: errors.New("connection refused")}
	store := newTestStore(q)

	if _, err := store.Search(context.Background(), "query", "", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestLessonLinkMissingLessonIsNotAnError(t *testing.T) {
	q := &fakeQuerier{linkErr: pgx.ErrNoRows}
	store := newTestStore(q)

	link, err := store.LessonLink(context.Background(), "Course A", 99)
	if err != nil {
		t.Fatalf("LessonLink: %v", err)
	}
	if link != "" {
		t.Errorf("link = %q, want empty", link)
	}
}

func TestOutline(t *testing.T) {
	q := &fakeQuerier{
		resolveRow: ResolveCourseRow{
			ID:    pgtype.UUID{Bytes: [16]byte{7}, Valid: true},
			Title: "MCP Basics", Link: "https://example.com/mcp", Instructor: "Ada",
		},
		lessons: []CourseLessonsRow{
			{Number: 0, Title: "Intro", Link: "https://example.com/mcp/0"},
			{Number: 1, Title: "Servers"},
		},
	}
	store := newTestStore(q)

	course, err := store.Outline(context.Background(), "mcp")
	if err != nil {
		t.Fatalf("Outline: %v", err)
	}
	if course.Title != "MCP Basics" || course.Instructor != "Ada" {
		t.Errorf("course = %+v", course)
	}
	if len(course.Lessons) != 2 || course.Lessons[1].Title != "Servers" {
		t.Errorf("lessons = %+v", course.Lessons)
	}
}

func TestOutlineUnknownCourse(t *testing.T) {
	q := &fakeQuerier{resolveErr: pgx.ErrNoRows}
	store := newTestStore(q)

	_, err := store.Outline(context.Background(), "ghost")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestAnalyticsEmptyCatalog(t *testing.T) {
	store := newTestStore(&fakeQuerier{})

	analytics, err := store.Analytics(context.Background())
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if analytics.TotalCourses != 0 {
		t.Errorf("total = %d", analytics.TotalCourses)
	}
	if analytics.CourseTitles == nil || len(analytics.CourseTitles) != 0 {
		t.Errorf("titles = %#v, want empty non-nil slice", analytics.CourseTitles)
	}
}

func TestAddCourse(t *testing.T) {
	q := &fakeQuerier{}
	store := newTestStore(q)

	course := Course{
		Title: "Test Course",
		Link:  "https://example.com",
		Lessons: []Lesson{
			{Number: 0, Title: "Intro", Link: "https://example.com/0"},
			{Number: 1, Title: "More"},
		},
	}
	chunks := []Chunk{
		{Content: "first chunk", LessonNumber: intPtr(0), Index: 0},
		{Content: "second chunk", LessonNumber: intPtr(1), Index: 1},
		{Content: "preamble", Index: 2},
	}

	if err := store.AddCourse(context.Background(), course, chunks); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	if len(q.upsertedCourses) != 1 || q.upsertedCourses[0].Title != "Test Course" {
		t.Errorf("upserts = %+v", q.upsertedCourses)
	}
	if len(q.insertedLessons) != 2 {
		t.Errorf("lessons = %d, want 2", len(q.insertedLessons))
	}
	if len(q.insertedChunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(q.insertedChunks))
	}
	if q.insertedChunks[2].LessonNumber.Valid {
		t.Error("preamble chunk lesson number should be NULL")
	}
	for i, chunk := range q.insertedChunks {
		if chunk.Embedding == nil {
			t.Errorf("chunk %d has no embedding", i)
		}
	}
}

func TestAddCourseRequiresTitle(t *testing.T) {
	store := newTestStore(&fakeQuerier{})
	if err := store.AddCourse(context.Background(), Course{}, nil); err == nil {
		t.Fatal("expected error for missing title")
	}
}
