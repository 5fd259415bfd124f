package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/lectern-ai/lectern/internal/course"
)

// SearchName is the catalog name of the content search tool.
const SearchName = "search_course_content"

// SearchStore defines the retrieval operations SearchTool needs.
// course.Store satisfies this interface.
type SearchStore interface {
	// Search returns ranked chunk matches, optionally filtered by a fuzzy
	// course name and a lesson number.
	Search(ctx context.Context, query, courseName string, lessonNumber *int) ([]course.Match, error)

	// LessonLink returns the deep link for a lesson, or "" when none is known.
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// SearchTool searches ingested course content and records a citation for
// every chunk it returns. The citations of the most recent execution replace
// those of the one before.
type SearchTool struct {
	store       SearchStore
	lastSources []Source
}

// NewSearchTool creates the content search tool backed by store.
func NewSearchTool(store SearchStore) *SearchTool {
	return &SearchTool{store: store}
}

// Definition implements Tool.
func (t *SearchTool) Definition() *ai.ToolDefinition {
	return &ai.ToolDefinition{
		Name:        SearchName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: inputSchema(&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        "integer",
					Description: "Specific lesson number to search within (e.g. 1, 3)",
				},
			},
			Required: []string{"query"},
		}),
	}
}

// Execute implements Tool.
//
// Store-level conditions (unknown course, no matches, backend failure) are
// reported as returned text so the model can relay them; only malformed
// arguments produce an error.
func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := stringArg(args, "query")
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%s: missing required argument %q", SearchName, "query")
	}

	courseName := stringArg(args, "course_name")
	var lessonNumber *int
	if n, ok := intArg(args, "lesson_number"); ok {
		lessonNumber = &n
	}

	matches, err := t.store.Search(ctx, query, courseName, lessonNumber)
	if err != nil {
		var notFound *course.NotFoundError
		if errors.As(err, &notFound) {
			return notFound.Error(), nil
		}
		return fmt.Sprintf("Search error: %v", err), nil
	}

	if len(matches) == 0 {
		var filterInfo strings.Builder
		if courseName != "" {
			fmt.Fprintf(&filterInfo, " in course '%s'", courseName)
		}
		if lessonNumber != nil {
			fmt.Fprintf(&filterInfo, " in lesson %d", *lessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filterInfo.String()), nil
	}

	return t.formatMatches(ctx, matches), nil
}

// formatMatches renders matches as bracketed course/lesson headers followed
// by chunk text, and overwrites the recorded citations.
func (t *SearchTool) formatMatches(ctx context.Context, matches []course.Match) string {
	blocks := make([]string, 0, len(matches))
	sources := make([]Source, 0, len(matches))

	for _, m := range matches {
		label := m.CourseTitle
		if m.LessonNumber != nil {
			label = fmt.Sprintf("%s - Lesson %d", m.CourseTitle, *m.LessonNumber)
		}

		link := ""
		if m.LessonNumber != nil {
			// Citation links are best effort; a lookup failure just yields
			// a plain-text citation.
			link, _ = t.store.LessonLink(ctx, m.CourseTitle, *m.LessonNumber)
		}

		sources = append(sources, Source{Label: label, URL: link})
		blocks = append(blocks, "["+label+"]\n"+m.Content)
	}

	t.lastSources = sources
	return strings.Join(blocks, "\n\n")
}

// LastSources implements SourceRecorder.
func (t *SearchTool) LastSources() []Source {
	return t.lastSources
}

// ResetSources implements SourceRecorder.
func (t *SearchTool) ResetSources() {
	t.lastSources = nil
}
