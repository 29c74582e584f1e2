package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpdriver/mpdriver/engine/core"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	return r
}

func TestRespondProblem(t *testing.T) {
	t.Run("Should write a problem document with localized messages", func(t *testing.T) {
		r := newEngine()
		r.GET("/fail", func(c *gin.Context) {
			RespondProblem(c, (&core.Problem{Status: http.StatusNotFound, Title: "NoTaskForUser"}).
				WithMessages(core.Messages{"ru": "Нет задачи", "en": "No task"}, PreferredLanguage(c)))
		})
		req := httptest.NewRequest(http.MethodGet, "/fail", http.NoBody)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "NoTaskForUser", body["error"])
		assert.Equal(t, "No task", body["message"])
		assert.Equal(t, "Нет задачи", body["langs"].(map[string]any)["ru"])
		assert.Equal(t, "en", w.Header().Get("Content-Language"))
		assert.Equal(t, w.Header().Get(RequestIDHeader), body["request_id"])
	})

	t.Run("Should embed the code for generic problems", func(t *testing.T) {
		r := newEngine()
		r.GET("/bad", func(c *gin.Context) {
			RespondProblemWithCode(c, http.StatusBadRequest, ErrBadRequestCode, "missing body")
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", http.NoBody))
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, ErrBadRequestCode, body["code"])
		assert.Equal(t, "missing body", body["detail"])
	})
}

func TestPreferredLanguage(t *testing.T) {
	cases := map[string]string{
		"":                "ru",
		"en":              "en",
		"de-DE,en;q=0.5":  "en",
		"ru-RU,en;q=0.8":  "ru",
		"fr":              "ru",
		"fr-FR,de;q=0.9":  "ru",
		"en-GB":           "en",
		"not a language!": "ru",
	}
	for header, want := range cases {
		t.Run("Should pick "+want+" for "+header, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			c.Request.Header.Set("Accept-Language", header)
			assert.Equal(t, want, PreferredLanguage(c))
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Run("Should keep a valid incoming id and assign one otherwise", func(t *testing.T) {
		r := newEngine()
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(RequestIDHeader, id)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, id, w.Header().Get(RequestIDHeader))

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})
}
