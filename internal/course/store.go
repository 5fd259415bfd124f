package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/lectern-ai/lectern/internal/log"
)

// embedBatchSize caps how many chunks go into one embedding request.
const embedBatchSize = 100

// Querier defines the database operations Store depends on. Interfaces are
// defined by the consumer, which keeps Store testable against a fake.
type Querier interface {
	UpsertCourse(ctx context.Context, arg UpsertCourseParams) (pgtype.UUID, error)
	InsertLesson(ctx context.Context, arg InsertLessonParams) error
	InsertChunk(ctx context.Context, arg InsertChunkParams) error
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)
	ResolveCourse(ctx context.Context, name string) (ResolveCourseRow, error)
	CourseLessons(ctx context.Context, courseID pgtype.UUID) ([]CourseLessonsRow, error)
	GetLessonLink(ctx context.Context, arg GetLessonLinkParams) (string, error)
	CountCourses(ctx context.Context) (int64, error)
	ListCourseTitles(ctx context.Context) ([]string, error)
	DeleteAllCourses(ctx context.Context) error
}

// Store manages the course catalog with vector search over chunked content.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries     Querier
	embedder    ai.Embedder
	logger      log.Logger
	searchLimit int
}

// NewStore creates a Store. searchLimit caps the number of chunks a search
// returns; values below 1 fall back to 5.
func NewStore(querier Querier, embedder ai.Embedder, logger log.Logger, searchLimit int) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	if searchLimit < 1 {
		searchLimit = 5
	}
	return &Store{
		queries:     querier,
		embedder:    embedder,
		logger:      logger,
		searchLimit: searchLimit,
	}
}

// Search performs semantic search over course content. courseName, when
// non-empty, restricts results to the best-matching course; lessonNumber,
// when non-nil, restricts to that lesson. A course name that matches nothing
// returns *NotFoundError.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]Match, error) {
	var courseID pgtype.UUID
	if courseName != "" {
		resolved, err := s.queries.ResolveCourse(ctx, courseName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Name: courseName}
			}
			return nil, fmt.Errorf("resolve course %q: %w", courseName, err)
		}
		courseID = resolved.ID
	}

	embedding, err := s.embedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var lesson pgtype.Int4
	if lessonNumber != nil {
		lesson = pgtype.Int4{Int32: int32(*lessonNumber), Valid: true}
	}

	rows, err := s.queries.SearchChunks(ctx, SearchChunksParams{
		QueryEmbedding: embedding,
		CourseID:       courseID,
		LessonNumber:   lesson,
		ResultLimit:    int32(s.searchLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	matches := make([]Match, 0, len(rows))
	for _, row := range rows {
		m := Match{
			Content:     row.Content,
			CourseTitle: row.CourseTitle,
		}
		if row.LessonNumber.Valid {
			n := int(row.LessonNumber.Int32)
			m.LessonNumber = &n
		}
		matches = append(matches, m)
	}

	s.logger.Debug("content search",
		"query_length", len(query),
		"course_filter", courseName,
		"matches", len(matches),
	)
	return matches, nil
}

// LessonLink returns the link for a lesson identified by exact course title
// and lesson number. Missing lessons return an empty link, not an error;
// links are presentation metadata and their absence never fails a search.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	link, err := s.queries.GetLessonLink(ctx, GetLessonLinkParams{
		CourseTitle:  courseTitle,
		LessonNumber: int32(lessonNumber),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get lesson link: %w", err)
	}
	return link, nil
}

// Outline returns the full course outline for the best-matching course name.
// A name that matches nothing returns *NotFoundError.
func (s *Store) Outline(ctx context.Context, courseName string) (*Course, error) {
	resolved, err := s.queries.ResolveCourse(ctx, courseName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Name: courseName}
		}
		return nil, fmt.Errorf("resolve course %q: %w", courseName, err)
	}

	rows, err := s.queries.CourseLessons(ctx, resolved.ID)
	if err != nil {
		return nil, fmt.Errorf("course lessons: %w", err)
	}

	course := &Course{
		Title:      resolved.Title,
		Link:       resolved.Link,
		Instructor: resolved.Instructor,
		Lessons:    make([]Lesson, 0, len(rows)),
	}
	for _, row := range rows {
		course.Lessons = append(course.Lessons, Lesson{
			Number: int(row.Number),
			Title:  row.Title,
			Link:   row.Link,
		})
	}
	return course, nil
}

// Analytics returns the catalog summary for the courses endpoint.
func (s *Store) Analytics(ctx context.Context) (Analytics, error) {
	count, err := s.queries.CountCourses(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("count courses: %w", err)
	}
	titles, err := s.queries.ListCourseTitles(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("list course titles: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return Analytics{
		TotalCourses: int(count),
		CourseTitles: titles,
	}, nil
}

// ExistingTitles returns the titles already present in the catalog.
func (s *Store) ExistingTitles(ctx context.Context) ([]string, error) {
	titles, err := s.queries.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	return titles, nil
}

// AddCourse stores a course, its lessons, and its embedded content chunks.
// Chunk embeddings are generated in batches.
func (s *Store) AddCourse(ctx context.Context, course Course, chunks []Chunk) error {
	if course.Title == "" {
		return fmt.Errorf("course title must not be empty")
	}

	courseID, err := s.queries.UpsertCourse(ctx, UpsertCourseParams{
		Title:      course.Title,
		Link:       course.Link,
		Instructor: course.Instructor,
	})
	if err != nil {
		return fmt.Errorf("upsert course %q: %w", course.Title, err)
	}

	for _, lesson := range course.Lessons {
		err := s.queries.InsertLesson(ctx, InsertLessonParams{
			CourseID: courseID,
			Number:   int32(lesson.Number),
			Title:    lesson.Title,
			Link:     lesson.Link,
		})
		if err != nil {
			return fmt.Errorf("insert lesson %d of %q: %w", lesson.Number, course.Title, err)
		}
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		embeddings, err := s.embedChunks(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed chunks of %q: %w", course.Title, err)
		}

		for i, chunk := range batch {
			var lesson pgtype.Int4
			if chunk.LessonNumber != nil {
				lesson = pgtype.Int4{Int32: int32(*chunk.LessonNumber), Valid: true}
			}
			err := s.queries.InsertChunk(ctx, InsertChunkParams{
				CourseID:     courseID,
				LessonNumber: lesson,
				ChunkIndex:   int32(chunk.Index),
				Content:      chunk.Content,
				Embedding:    embeddings[i],
			})
			if err != nil {
				return fmt.Errorf("insert chunk %d of %q: %w", chunk.Index, course.Title, err)
			}
		}
	}

	s.logger.Info("course stored",
		"title", course.Title,
		"lessons", len(course.Lessons),
		"chunks", len(chunks),
	)
	return nil
}

// DeleteAll clears the entire catalog.
func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.queries.DeleteAllCourses(ctx); err != nil {
		return fmt.Errorf("delete all courses: %w", err)
	}
	s.logger.Info("course catalog cleared")
	return nil
}

// embedText embeds a single text and returns its vector.
func (s *Store) embedText(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	vec := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &vec, nil
}

// embedChunks embeds a batch of chunks in one request.
func (s *Store) embedChunks(ctx context.Context, chunks []Chunk) ([]*pgvector.Vector, error) {
	docs := make([]*ai.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = ai.DocumentFromText(chunk.Content, nil)
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d",
			len(resp.Embeddings), len(chunks))
	}

	vectors := make([]*pgvector.Vector, len(chunks))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding for chunk %d", chunks[i].Index)
		}
		vec := pgvector.NewVector(emb.Embedding)
		vectors[i] = &vec
	}
	return vectors, nil
}
