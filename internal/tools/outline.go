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

// OutlineName is the catalog name of the course outline tool.
const OutlineName = "get_course_outline"

// OutlineStore defines the lookup operation OutlineTool needs.
// course.Store satisfies this interface.
type OutlineStore interface {
	// Outline resolves a fuzzy course name to the full course record.
	Outline(ctx context.Context, courseName string) (*course.Course, error)
}

// OutlineTool returns a course's title, link, and complete lesson list.
// It produces no citations.
type OutlineTool struct {
	store OutlineStore
}

// NewOutlineTool creates the outline tool backed by store.
func NewOutlineTool(store OutlineStore) *OutlineTool {
	return &OutlineTool{store: store}
}

// Definition implements Tool.
func (t *OutlineTool) Definition() *ai.ToolDefinition {
	return &ai.ToolDefinition{
		Name:        OutlineName,
		Description: "Get a course outline: the course title, course link, and complete numbered lesson list",
		InputSchema: inputSchema(&jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			Required: []string{"course_name"},
		}),
	}
}

// Execute implements Tool. Unresolvable course names are reported as
// returned text, not as an error.
func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	courseName := stringArg(args, "course_name")
	if strings.TrimSpace(courseName) == "" {
		return "", fmt.Errorf("%s: missing required argument %q", OutlineName, "course_name")
	}

	c, err := t.store.Outline(ctx, courseName)
	if err != nil {
		var notFound *course.NotFoundError
		if errors.As(err, &notFound) {
			return notFound.Error(), nil
		}
		return fmt.Sprintf("Outline error: %v", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course Title: %s\n", c.Title)
	if c.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", c.Link)
	}
	fmt.Fprintf(&b, "Number of Lessons: %d\n", len(c.Lessons))
	for _, l := range c.Lessons {
		fmt.Fprintf(&b, "\nLesson %d: %s", l.Number, l.Title)
	}
	return b.String(), nil
}
