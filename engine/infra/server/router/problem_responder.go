package router

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/core"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

var marshalFailureBody = []byte(`{"status":500,"error":"InternalError"}`)

// RespondProblem writes problem as application/problem+json, tagged with the
// request id and message language, and aborts the handler chain.
func RespondProblem(c *gin.Context, problem *core.Problem) {
	p := core.NormalizeProblem(problem)
	body := core.BuildProblemBody(p)
	requestID := c.Writer.Header().Get(RequestIDHeader)
	if requestID != "" {
		body["request_id"] = requestID
	}
	logProblem(c, p, requestID)
	payload, err := json.Marshal(body)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("Problem body not serializable", "error", err)
		c.Data(http.StatusInternalServerError, "application/problem+json", marshalFailureBody)
		c.Abort()
		return
	}
	if p.Lang != "" {
		c.Header("Content-Language", p.Lang)
	}
	c.Data(p.Status, "application/problem+json", payload)
	c.Abort()
}

// RespondProblemWithCode is RespondProblem for problems without localized
// messages; code lands in the body's "code" field.
func RespondProblemWithCode(c *gin.Context, status int, code string, detail string) {
	RespondProblem(c, &core.Problem{
		Status: status,
		Title:  http.StatusText(status),
		Detail: detail,
		Extras: map[string]any{"code": code},
	})
}

func logProblem(c *gin.Context, p *core.Problem, requestID string) {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{"status", p.Status, "error", p.Title, "route", route}
	if p.Detail != "" {
		fields = append(fields, "detail", p.Detail)
	}
	if code, ok := p.Extras["code"]; ok {
		fields = append(fields, "code", code)
	}
	if requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	log := logger.FromContext(c.Request.Context())
	if p.Status >= http.StatusInternalServerError {
		log.Error("Request failed", fields...)
		return
	}
	log.Warn("Request rejected", fields...)
}
