package course

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx operations the query layer needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries bundles the raw SQL for the course catalog tables.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection or pool.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const upsertCourse = `
INSERT INTO courses (title, link, instructor)
VALUES ($1, $2, $3)
ON CONFLICT (title) DO UPDATE SET
    link = EXCLUDED.link,
    instructor = EXCLUDED.instructor
RETURNING id
`

// UpsertCourseParams holds the course header fields.
type UpsertCourseParams struct {
	Title      string
	Link       string
	Instructor string
}

// UpsertCourse inserts a course or refreshes its header fields, keyed by
// title. Returns the course ID.
func (q *Queries) UpsertCourse(ctx context.Context, arg UpsertCourseParams) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := q.db.QueryRow(ctx, upsertCourse, arg.Title, arg.Link, arg.Instructor).Scan(&id)
	return id, err
}

const insertLesson = `
INSERT INTO lessons (course_id, number, title, link)
VALUES ($1, $2, $3, $4)
ON CONFLICT (course_id, number) DO UPDATE SET
    title = EXCLUDED.title,
    link = EXCLUDED.link
`

// InsertLessonParams holds one lesson row.
type InsertLessonParams struct {
	CourseID pgtype.UUID
	Number   int32
	Title    string
	Link     string
}

// InsertLesson inserts or refreshes a lesson, keyed by (course, number).
func (q *Queries) InsertLesson(ctx context.Context, arg InsertLessonParams) error {
	_, err := q.db.Exec(ctx, insertLesson, arg.CourseID, arg.Number, arg.Title, arg.Link)
	return err
}

const insertChunk = `
INSERT INTO chunks (course_id, lesson_number, chunk_index, content, embedding)
VALUES ($1, $2, $3, $4, $5)
`

// InsertChunkParams holds one embedded content chunk. LessonNumber is NULL
// for content preceding the first lesson marker.
type InsertChunkParams struct {
	CourseID     pgtype.UUID
	LessonNumber pgtype.Int4
	ChunkIndex   int32
	Content      string
	Embedding    *pgvector.Vector
}

// InsertChunk stores an embedded content chunk.
func (q *Queries) InsertChunk(ctx context.Context, arg InsertChunkParams) error {
	_, err := q.db.Exec(ctx, insertChunk,
		arg.CourseID, arg.LessonNumber, arg.ChunkIndex, arg.Content, arg.Embedding)
	return err
}

const searchChunks = `
SELECT ch.content, c.title, ch.lesson_number
FROM chunks ch
JOIN courses c ON c.id = ch.course_id
WHERE ($2::uuid IS NULL OR ch.course_id = $2)
  AND ($3::int IS NULL OR ch.lesson_number = $3)
ORDER BY ch.embedding <=> $1
LIMIT $4
`

// SearchChunksParams holds the vector search inputs. CourseID and
// LessonNumber with Valid=false encode NULL, disabling that filter.
type SearchChunksParams struct {
	QueryEmbedding *pgvector.Vector
	CourseID       pgtype.UUID
	LessonNumber   pgtype.Int4
	ResultLimit    int32
}

// SearchChunksRow is one vector search hit.
type SearchChunksRow struct {
	Content      string
	CourseTitle  string
	LessonNumber pgtype.Int4
}

// SearchChunks returns the chunks nearest to the query embedding by cosine
// distance, optionally filtered to one course and lesson.
func (q *Queries) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	rows, err := q.db.Query(ctx, searchChunks,
		arg.QueryEmbedding, arg.CourseID, arg.LessonNumber, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SearchChunksRow
	for rows.Next() {
		var r SearchChunksRow
		if err := rows.Scan(&r.Content, &r.CourseTitle, &r.LessonNumber); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const resolveCourse = `
SELECT id, title, link, instructor
FROM courses
WHERE title ILIKE '%' || $1 || '%'
ORDER BY char_length(title)
LIMIT 1
`

// ResolveCourseRow is the resolved course header.
type ResolveCourseRow struct {
	ID         pgtype.UUID
	Title      string
	Link       string
	Instructor string
}

// ResolveCourse finds the course whose title best matches a partial,
// case-insensitive name. Shorter titles win ties so that "MCP" prefers
// "MCP Basics" over "Advanced MCP Patterns Deep Dive". Returns
// pgx.ErrNoRows when nothing matches.
func (q *Queries) ResolveCourse(ctx context.Context, name string) (ResolveCourseRow, error) {
	var r ResolveCourseRow
	err := q.db.QueryRow(ctx, resolveCourse, name).Scan(&r.ID, &r.Title, &r.Link, &r.Instructor)
	return r, err
}

const courseLessons = `
SELECT number, title, link
FROM lessons
WHERE course_id = $1
ORDER BY number
`

// CourseLessonsRow is one lesson of a course outline.
type CourseLessonsRow struct {
	Number int32
	Title  string
	Link   string
}

// CourseLessons returns a course's lessons in order.
func (q *Queries) CourseLessons(ctx context.Context, courseID pgtype.UUID) ([]CourseLessonsRow, error) {
	rows, err := q.db.Query(ctx, courseLessons, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CourseLessonsRow
	for rows.Next() {
		var r CourseLessonsRow
		if err := rows.Scan(&r.Number, &r.Title, &r.Link); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getLessonLink = `
SELECT l.link
FROM lessons l
JOIN courses c ON c.id = l.course_id
WHERE c.title = $1 AND l.number = $2
`

// GetLessonLinkParams identifies a lesson by exact course title and number.
type GetLessonLinkParams struct {
	CourseTitle  string
	LessonNumber int32
}

// GetLessonLink returns a lesson's link, or pgx.ErrNoRows if the lesson does
// not exist.
func (q *Queries) GetLessonLink(ctx context.Context, arg GetLessonLinkParams) (string, error) {
	var link string
	err := q.db.QueryRow(ctx, getLessonLink, arg.CourseTitle, arg.LessonNumber).Scan(&link)
	return link, err
}

const countCourses = `SELECT COUNT(*) FROM courses`

// CountCourses returns the number of courses in the catalog.
func (q *Queries) CountCourses(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countCourses).Scan(&count)
	return count, err
}

const listCourseTitles = `SELECT title FROM courses ORDER BY title`

// ListCourseTitles returns all course titles in alphabetical order.
func (q *Queries) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listCourseTitles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

const deleteAllCourses = `DELETE FROM courses`

// DeleteAllCourses removes every course. Lessons and chunks cascade.
func (q *Queries) DeleteAllCourses(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteAllCourses)
	return err
}
