package core

import (
	"maps"
	"net/http"
)

// Problem captures the information returned in an RFC 7807 error response.
// Title carries the machine-readable error name.
type Problem struct {
	Type     string
	Title    string
	Status   int
	Detail   string
	Instance string
	// Lang is the language of the selected message, if any.
	Lang   string
	Extras map[string]any
}

// Messages holds one human-readable message per language tag.
type Messages map[string]string

// NormalizeProblem ensures the provided problem includes canonical defaults.
func NormalizeProblem(problem *Problem) *Problem {
	if problem == nil {
		problem = &Problem{}
	}
	if problem.Status == 0 {
		problem.Status = http.StatusInternalServerError
	}
	if problem.Title == "" {
		problem.Title = http.StatusText(problem.Status)
	}
	if problem.Type == "" {
		problem.Type = "about:blank"
	}
	return problem
}

// WithMessages attaches localized messages and the one selected for lang.
func (p *Problem) WithMessages(msgs Messages, lang string) *Problem {
	if p.Extras == nil {
		p.Extras = map[string]any{}
	}
	p.Extras["langs"] = msgs
	if msg, ok := msgs[lang]; ok {
		p.Extras["message"] = msg
		p.Lang = lang
	}
	return p
}

// BuildProblemBody assembles the serialized representation of the problem.
func BuildProblemBody(problem *Problem) map[string]any {
	body := map[string]any{
		"status": problem.Status,
		"error":  problem.Title,
	}
	if problem.Detail != "" {
		body["detail"] = problem.Detail
	}
	if problem.Type != "" {
		body["type"] = problem.Type
	}
	if problem.Instance != "" {
		body["instance"] = problem.Instance
	}
	extras := maps.Clone(problem.Extras)
	maps.DeleteFunc(extras, func(key string, _ any) bool { return isReservedProblemKey(key) })
	maps.Copy(body, extras)
	return body
}

func isReservedProblemKey(key string) bool {
	switch key {
	case "status", "error", "detail", "type", "instance":
		return true
	default:
		return false
	}
}
