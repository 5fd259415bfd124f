// Package agent implements the conversational loop against the model: a
// bounded sequence of tool-calling rounds followed by a synthesis call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/lectern-ai/lectern/internal/log"
)

// DefaultMaxToolRounds bounds tool-calling rounds per query. Each round is
// one model call plus the execution of every tool it requested; the final
// synthesis call is not a round.
const DefaultMaxToolRounds = 2

// ToolRunner supplies the tool catalog for a query and executes tool
// requests by name. tools.Registry satisfies this interface.
type ToolRunner interface {
	Definitions() []*ai.ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Config configures a Generator.
type Config struct {
	Model         ai.Model      // required
	Logger        log.Logger    // nil = slog.Default()
	MaxToolRounds int           // <= 0 = DefaultMaxToolRounds
	Temperature   float32       // model sampling temperature
	MaxTokens     int           // response token cap, <= 0 = 800
	Retry         RetryConfig   // zero value = DefaultRetryConfig()
	RateLimiter   *rate.Limiter // nil = no rate limiting
}

// Generator drives the model conversation for a single query.
//
// Generator is stateless across calls; all conversation state lives in the
// message list built inside Respond, so one Generator serves concurrent
// queries.
type Generator struct {
	model         ai.Model
	logger        log.Logger
	maxToolRounds int
	temperature   float32
	maxTokens     int
	retry         RetryConfig
	limiter       *rate.Limiter
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}

	return &Generator{
		model:         cfg.Model,
		logger:        logger,
		maxToolRounds: rounds,
		temperature:   cfg.Temperature,
		maxTokens:     maxTokens,
		retry:         retry,
		limiter:       cfg.RateLimiter,
	}, nil
}

// Respond answers query, optionally giving the model access to tools.
//
// history, when non-empty, is a formatted transcript of prior exchanges and
// is appended to the system directive. tools may be nil, in which case the
// model gets no tool catalog and a single call is made.
//
// The model is called at most maxToolRounds+1 times: each round offers the
// tool catalog, executes every requested tool, and feeds the results back;
// the loop ends early when the model answers in text, or when a tool fails
// (the failure text is still fed back so the final call can explain it).
// If the loop never produced a text answer, a last call without tools forces
// synthesis.
//
// Model errors propagate (after retry); tool failures never do.
func (g *Generator) Respond(ctx context.Context, query, history string, tools ToolRunner) (string, error) {
	system := SystemPrompt
	if history != "" {
		system = SystemPrompt + "\n\nPrevious conversation:\n" + history
	}

	messages := []*ai.Message{
		ai.NewSystemTextMessage(system),
		ai.NewUserTextMessage(query),
	}

	var defs []*ai.ToolDefinition
	if tools != nil {
		defs = tools.Definitions()
	}

	for round := 0; round < g.maxToolRounds; round++ {
		req := &ai.ModelRequest{
			Messages: messages,
			Config:   g.generationConfig(),
		}
		if len(defs) > 0 {
			req.Tools = defs
			req.ToolChoice = ai.ToolChoiceAuto
		}

		resp, err := g.generateWithRetry(ctx, req)
		if err != nil {
			return "", fmt.Errorf("model call (round %d): %w", round+1, err)
		}

		toolRequests := resp.ToolRequests()
		if len(toolRequests) == 0 || tools == nil {
			return resp.Text(), nil
		}

		g.logger.Debug("executing tool requests", "round", round+1, "count", len(toolRequests))

		results, failed := g.executeTools(ctx, tools, toolRequests)
		messages = append(messages, resp.Message)
		messages = append(messages, &ai.Message{Role: ai.RoleTool, Content: results})

		if failed {
			break
		}
	}

	// Rounds exhausted or a tool failed: synthesis call without tools.
	resp, err := g.generateWithRetry(ctx, &ai.ModelRequest{
		Messages: messages,
		Config:   g.generationConfig(),
	})
	if err != nil {
		return "", fmt.Errorf("synthesis call: %w", err)
	}
	return resp.Text(), nil
}

// executeTools runs every requested tool in order and returns their result
// parts plus whether any tool failed. A failure is converted to an inline
// "Tool execution error" result so the model still sees a response for every
// request it made.
func (g *Generator) executeTools(ctx context.Context, tools ToolRunner, requests []*ai.ToolRequest) ([]*ai.Part, bool) {
	parts := make([]*ai.Part, 0, len(requests))
	failed := false

	for _, tr := range requests {
		args, _ := tr.Input.(map[string]any)

		output, err := tools.Execute(ctx, tr.Name, args)
		if err != nil {
			g.logger.Warn("tool execution failed", "tool", tr.Name, "error", err)
			output = fmt.Sprintf("Tool execution error: %v", err)
			failed = true
		}

		parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   tr.Name,
			Ref:    tr.Ref,
			Output: output,
		}))
	}

	return parts, failed
}

func (g *Generator) generationConfig() *ai.GenerationCommonConfig {
	return &ai.GenerationCommonConfig{
		Temperature:     float64(g.temperature),
		MaxOutputTokens: g.maxTokens,
	}
}
