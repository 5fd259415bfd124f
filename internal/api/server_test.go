package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/lectern-ai/lectern/internal/course"
	"github.com/lectern-ai/lectern/internal/log"
	"github.com/lectern-ai/lectern/internal/rag"
	"github.com/lectern-ai/lectern/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeQueryService struct {
	answer    *rag.Answer
	queryErr  error
	analytics course.Analytics

	lastQuery   string
	lastSession string
}

func (f *fakeQueryService) Query(_ context.Context, query, sessionID string) (*rag.Answer, error) {
	f.lastQuery = query
	f.lastSession = sessionID
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.answer != nil {
		return f.answer, nil
	}
	return &rag.Answer{Text: "default answer", Sources: []string{}}, nil
}

func (f *fakeQueryService) CourseAnalytics(_ context.Context) (course.Analytics, error) {
	return f.analytics, nil
}

type fakeSessionService struct {
	createdID string
	createErr error
	clearErr  error
	cleared   []string
}

func (f *fakeSessionService) Create(_ context.Context) (string, error) {
	return f.createdID, f.createErr
}

func (f *fakeSessionService) Clear(_ context.Context, sessionID string) error {
	f.cleared = append(f.cleared, sessionID)
	return f.clearErr
}

func newTestServer(t *testing.T, query *fakeQueryService, sessions *fakeSessionService) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		Query:       query,
		Sessions:    sessions,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpointWithSessionID(t *testing.T) {
	query := &fakeQueryService{
		answer: &rag.Answer{
			Text:    "Python is a programming language.",
			Sources: []string{"Intro to Python - Lesson 1"},
		},
	}
	srv := newTestServer(t, query, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodPost, "/api/query",
		`{"query": "What is Python?", "session_id": "abc-123"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "Python is a programming language." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "Intro to Python - Lesson 1" {
		t.Errorf("sources = %v", resp.Sources)
	}
	if resp.SessionID != "abc-123" {
		t.Errorf("session_id = %q, want echo of request value", resp.SessionID)
	}
	if query.lastSession != "abc-123" {
		t.Errorf("service session = %q", query.lastSession)
	}
}

func TestQueryEndpointCreatesSession(t *testing.T) {
	sessions := &fakeSessionService{createdID: "new-session-id"}
	srv := newTestServer(t, &fakeQueryService{}, sessions)

	rec := doJSON(t, srv, http.MethodPost, "/api/query", `{"query": "hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID != "new-session-id" {
		t.Errorf("session_id = %q, want the newly created one", resp.SessionID)
	}
}

func TestQueryEndpointEmptyQuery(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	for _, body := range []string{`{"query": ""}`, `{"query": "   "}`, `{}`} {
		rec := doJSON(t, srv, http.MethodPost, "/api/query", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestQueryEndpointInvalidJSON(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodPost, "/api/query", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueryEndpointServiceFailure(t *testing.T) {
	query := &fakeQueryService{queryErr: errors.New("model unavailable")}
	srv := newTestServer(t, query, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodPost, "/api/query",
		`{"query": "q", "session_id": "s"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "query_error" {
		t.Errorf("error code = %q", resp.Error)
	}
	// Internal details never reach the client.
	if strings.Contains(resp.Message, "model unavailable") {
		t.Errorf("message leaks internals: %q", resp.Message)
	}
}

func TestQueryEndpointSessionCreateFailure(t *testing.T) {
	sessions := &fakeSessionService{createErr: errors.New("db down")}
	srv := newTestServer(t, &fakeQueryService{}, sessions)

	rec := doJSON(t, srv, http.MethodPost, "/api/query", `{"query": "q"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestCoursesEndpoint(t *testing.T) {
	query := &fakeQueryService{
		analytics: course.Analytics{
			TotalCourses: 2,
			CourseTitles: []string{"Course A", "Course B"},
		},
	}
	srv := newTestServer(t, query, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodGet, "/api/courses", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		TotalCourses int      `json:"total_courses"`
		CourseTitles []string `json:"course_titles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalCourses != 2 || len(resp.CourseTitles) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	sessions := &fakeSessionService{}
	srv := newTestServer(t, &fakeQueryService{}, sessions)

	rec := doJSON(t, srv, http.MethodDelete, "/api/session/some-session-id", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "cleared" {
		t.Errorf("status field = %q, want cleared", resp["status"])
	}
	if len(sessions.cleared) != 1 || sessions.cleared[0] != "some-session-id" {
		t.Errorf("cleared = %v", sessions.cleared)
	}
}

func TestDeleteSessionInvalidID(t *testing.T) {
	sessions := &fakeSessionService{
		clearErr: fmt.Errorf("%w: %q", session.ErrInvalidSessionID, "bogus"),
	}
	srv := newTestServer(t, &fakeQueryService{}, sessions)

	rec := doJSON(t, srv, http.MethodDelete, "/api/session/bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestReadinessWithoutPool(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	rec := doJSON(t, srv, http.MethodGet, "/api/courses", "")
	got := rec.Header().Get("X-Request-ID")
	if got == "" {
		t.Fatal("X-Request-ID header not set")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("X-Request-ID = %q, not a valid UUID", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	srv := newTestServer(t, &fakeQueryService{}, &fakeSessionService{})

	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want unset", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})
	handler := recoveryMiddleware(log.NewNop())(panicking)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestNewServerValidation(t *testing.T) {
	if _, err := NewServer(ServerConfig{Sessions: &fakeSessionService{}}); err == nil {
		t.Error("expected error for missing query service")
	}
	if _, err := NewServer(ServerConfig{Query: &fakeQueryService{}}); err == nil {
		t.Error("expected error for missing session service")
	}
}
