package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authmw "github.com/mpdriver/mpdriver/engine/infra/server/middleware/auth"
	"github.com/mpdriver/mpdriver/engine/infra/server/router"
	"github.com/mpdriver/mpdriver/engine/note"
	ntrouter "github.com/mpdriver/mpdriver/engine/note/router"
	noteuc "github.com/mpdriver/mpdriver/engine/note/uc"
	"github.com/mpdriver/mpdriver/engine/task"
	"github.com/mpdriver/mpdriver/engine/task/aggregate"
	tkrouter "github.com/mpdriver/mpdriver/engine/task/router"
	"github.com/mpdriver/mpdriver/engine/task/uc"
	"github.com/mpdriver/mpdriver/pkg/config"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type staticRows struct{}

func (staticRows) FetchTaskRows(_ context.Context, userID int64) ([]aggregate.Row, error) {
	return []aggregate.Row{{
		ID:           1,
		OwnerID:      userID,
		ParentID:     1,
		PlannedStart: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
		StatusCode:   "NotDefined",
	}}, nil
}

type discardSink struct{}

func (discardSink) RecordStatusEvent(context.Context, *task.StatusChange) error { return nil }

type staticNotes struct{}

func (staticNotes) ListNotes(_ context.Context, userID int64) ([]note.Note, error) {
	return []note.Note{{ID: 40, UserID: userID, Text: "Dock 4 is closed"}}, nil
}

func (staticNotes) RecordNoteStatus(context.Context, *note.StatusChange) error { return nil }

func (staticNotes) CreateNote(context.Context, *note.Draft) error { return nil }

func testAPI() *apiHandlers {
	opts := aggregate.DefaultOptions()
	return &apiHandlers{
		tasks: tkrouter.NewHandler(
			uc.NewListTasks(staticRows{}, opts),
			uc.NewUpdateStatuses(staticRows{}, discardSink{}, opts, nil),
			"Change",
		),
		notes: ntrouter.NewHandler(
			noteuc.NewListNotes(staticNotes{}),
			noteuc.NewCreateNote(staticNotes{}),
			noteuc.NewUpdateNoteStatus(staticNotes{}),
		),
	}
}

const testSecret = "s3cret"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Auth.Secret = testSecret
	return cfg
}

func testRouter(t *testing.T, cfg *config.Config, checks map[string]HealthChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := logger.ContextWithLogger(context.Background(), logger.NewForTests())
	r, err := newRouter(ctx, cfg, nil, testAPI(), checks)
	require.NoError(t, err)
	return r
}

func bearer(t *testing.T, key string, profileID int) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"profile_id": profileID}).
		SignedString([]byte(key))
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthHandler(t *testing.T) {
	t.Run("Should report healthy dependencies", func(t *testing.T) {
		r := testRouter(t, testConfig(), map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("Should answer 503 when a dependency fails", func(t *testing.T) {
		r := testRouter(t, testConfig(), map[string]HealthChecker{
			"database": checkFunc(func(context.Context) error { return nil }),
			"redis":    checkFunc(func(context.Context) error { return errors.New("refused") }),
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "refused")
	})
}

func TestRouter(t *testing.T) {
	t.Run("Should echo a request id", func(t *testing.T) {
		r := testRouter(t, testConfig(), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
		assert.NotEmpty(t, w.Header().Get(router.RequestIDHeader))
	})

	t.Run("Should require a bearer token on task routes", func(t *testing.T) {
		r := testRouter(t, testConfig(), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should refuse to build without a signing secret", func(t *testing.T) {
		ctx := logger.ContextWithLogger(context.Background(), logger.NewForTests())
		r, err := newRouter(ctx, config.Default(), nil, testAPI(), nil)
		require.ErrorIs(t, err, authmw.ErrMissingSecret)
		assert.Nil(t, r)
	})

	t.Run("Should reject a token signed with a foreign key", func(t *testing.T) {
		r := testRouter(t, testConfig(), nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody)
		req.Header.Set("Authorization", bearer(t, "attacker-key", 42))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should guard note routes with the same token check", func(t *testing.T) {
		r := testRouter(t, testConfig(), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notes", http.NoBody))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/notes", http.NoBody)
		req.Header.Set("Authorization", bearer(t, testSecret, 7))
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), "Dock 4 is closed")
	})

	t.Run("Should serve tasks for a verified token", func(t *testing.T) {
		r := testRouter(t, testConfig(), nil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", http.NoBody)
		req.Header.Set("Authorization", bearer(t, testSecret, 7))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var tasks []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
		require.Len(t, tasks, 1)
		assert.EqualValues(t, 1, tasks[0]["id"])
	})
}

func TestFriendlyHost(t *testing.T) {
	t.Run("Should map wildcard hosts to loopback", func(t *testing.T) {
		assert.Equal(t, "127.0.0.1", friendlyHost("0.0.0.0"))
		assert.Equal(t, "127.0.0.1", friendlyHost(""))
		assert.Equal(t, "example.org", friendlyHost("example.org"))
	})
}
