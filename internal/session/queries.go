package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx operations the query layer needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries bundles the raw SQL for the session tables.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection or pool.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const createSession = `
INSERT INTO sessions DEFAULT VALUES
RETURNING id
`

// CreateSession creates a session with a server-generated ID.
func (q *Queries) CreateSession(ctx context.Context) (pgtype.UUID, error) {
	var id pgtype.UUID
	err := q.db.QueryRow(ctx, createSession).Scan(&id)
	return id, err
}

const ensureSession = `
INSERT INTO sessions (id)
VALUES ($1)
ON CONFLICT (id) DO NOTHING
`

// EnsureSession creates the session row if it does not exist yet. Clients
// may present IDs the server has never seen, for example after a restart.
func (q *Queries) EnsureSession(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, ensureSession, id)
	return err
}

const insertExchange = `
INSERT INTO exchanges (session_id, user_text, assistant_text)
VALUES ($1, $2, $3)
`

// InsertExchangeParams holds one completed question/answer pair.
type InsertExchangeParams struct {
	SessionID     pgtype.UUID
	UserText      string
	AssistantText string
}

// InsertExchange appends an exchange to a session.
func (q *Queries) InsertExchange(ctx context.Context, arg InsertExchangeParams) error {
	_, err := q.db.Exec(ctx, insertExchange, arg.SessionID, arg.UserText, arg.AssistantText)
	return err
}

const listRecentExchanges = `
SELECT user_text, assistant_text
FROM (
    SELECT id, user_text, assistant_text
    FROM exchanges
    WHERE session_id = $1
    ORDER BY id DESC
    LIMIT $2
) recent
ORDER BY id
`

// ListRecentExchangesParams selects the trailing window of a session.
type ListRecentExchangesParams struct {
	SessionID   pgtype.UUID
	ResultLimit int32
}

// ExchangeRow is one question/answer pair.
type ExchangeRow struct {
	UserText      string
	AssistantText string
}

// ListRecentExchanges returns the last ResultLimit exchanges of a session in
// chronological order.
func (q *Queries) ListRecentExchanges(ctx context.Context, arg ListRecentExchangesParams) ([]ExchangeRow, error) {
	rows, err := q.db.Query(ctx, listRecentExchanges, arg.SessionID, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExchangeRow
	for rows.Next() {
		var r ExchangeRow
		if err := rows.Scan(&r.UserText, &r.AssistantText); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const clearExchanges = `
DELETE FROM exchanges
WHERE session_id = $1
`

// ClearExchanges removes a session's conversation history. The session row
// itself survives, so the ID stays usable.
func (q *Queries) ClearExchanges(ctx context.Context, sessionID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearExchanges, sessionID)
	return err
}
