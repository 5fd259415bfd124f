// Package course manages the course catalog: parsed course documents, their
// chunked content with vector embeddings, and semantic search over them
// backed by PostgreSQL + pgvector.
package course

import "fmt"

// Course is a parsed course document with its lesson list.
type Course struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int
	Title  string
	Link   string
}

// Chunk is a piece of course content prepared for embedding. LessonNumber is
// nil for content that precedes the first lesson marker.
type Chunk struct {
	Content      string
	LessonNumber *int
	Index        int
}

// Match is a single semantic search hit.
type Match struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
}

// Analytics summarizes the catalog for the courses endpoint.
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// NotFoundError reports that a course name filter matched nothing in the
// catalog. Its message is shown to the model verbatim, so keep it stable.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No course found matching '%s'", e.Name)
}
