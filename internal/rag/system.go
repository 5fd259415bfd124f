// Package rag orchestrates a query through the retrieval-augmented
// pipeline: conversation history, tool-assisted generation, and citation
// collection.
package rag

import (
	"context"
	"fmt"

	"github.com/lectern-ai/lectern/internal/agent"
	"github.com/lectern-ai/lectern/internal/course"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/tools"
)

// Responder generates an answer for a query, optionally calling tools.
type Responder interface {
	Respond(ctx context.Context, query, history string, runner agent.ToolRunner) (string, error)
}

// CourseStore is the catalog surface the pipeline needs: search and outline
// for the tools, analytics for the courses endpoint.
type CourseStore interface {
	tools.SearchStore
	tools.OutlineStore
	Analytics(ctx context.Context) (course.Analytics, error)
}

// SessionStore persists conversation history between queries.
type SessionStore interface {
	History(ctx context.Context, sessionID string) (string, error)
	AddExchange(ctx context.Context, sessionID, userText, assistantText string) error
}

// Answer is the result of one query: the response text and the citation
// display strings collected from tool executions during it.
type Answer struct {
	Text    string
	Sources []string
}

// System wires the generator, course catalog, and session store into the
// query pipeline.
//
// System is safe for concurrent use; each query gets its own tool registry
// so citations never leak across concurrent queries.
type System struct {
	generator Responder
	courses   CourseStore
	sessions  SessionStore
	logger    log.Logger
}

// New creates a System.
func New(generator Responder, courses CourseStore, sessions SessionStore, logger log.Logger) *System {
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		generator: generator,
		courses:   courses,
		sessions:  sessions,
		logger:    logger,
	}
}

// Query answers a user question about course materials. sessionID may be
// empty for one-shot queries; when present, prior exchanges are fed to the
// model and the new exchange is recorded afterwards.
//
// History and exchange-recording failures degrade the answer rather than
// fail it; only generation errors propagate.
func (s *System) Query(ctx context.Context, query, sessionID string) (*Answer, error) {
	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)

	var history string
	if sessionID != "" {
		h, err := s.sessions.History(ctx, sessionID)
		if err != nil {
			s.logger.Warn("history lookup failed, continuing without it",
				"session_id", sessionID, "error", err)
		} else {
			history = h
		}
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewSearchTool(s.courses))
	registry.Register(tools.NewOutlineTool(s.courses))

	text, err := s.generator.Respond(ctx, prompt, history, registry)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	sources := make([]string, 0)
	for _, src := range registry.LastSources() {
		sources = append(sources, displaySource(src))
	}
	registry.ResetSources()

	if sessionID != "" {
		if err := s.sessions.AddExchange(ctx, sessionID, query, text); err != nil {
			s.logger.Warn("failed to record exchange",
				"session_id", sessionID, "error", err)
		}
	}

	return &Answer{Text: text, Sources: sources}, nil
}

// CourseAnalytics returns the catalog summary.
func (s *System) CourseAnalytics(ctx context.Context) (course.Analytics, error) {
	return s.courses.Analytics(ctx)
}

// displaySource renders a citation for the frontend: an HTML anchor when a
// link is available, the plain label otherwise.
func displaySource(src tools.Source) string {
	if src.URL == "" {
		return src.Label
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, src.URL, src.Label)
}
