// Package app assembles the application: configuration, database,
// AI provider, stores, and the query pipeline.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern-ai/lectern/internal/agent"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/course"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/session"
)

// App holds all initialized application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Model    ai.Model
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Courses   *course.Store
	Sessions  *session.Store
	Generator *agent.Generator
	RAG       *rag.System
	Ingestor  *course.Ingestor

	dbCleanup func()
}

// Close releases all resources held by the App. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}
