package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/mpdriver/mpdriver/engine/auth/userctx"
	"github.com/mpdriver/mpdriver/engine/core"
	"github.com/mpdriver/mpdriver/engine/infra/server/router"
	"github.com/mpdriver/mpdriver/pkg/logger"
)

const profileClaim = "profile_id"

var unauthorizedMessages = core.Messages{
	"ru": "Требуется действительный токен авторизации",
	"en": "A valid authorization token is required",
}

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("server auth secret is required")

// Manager verifies HS256 bearer tokens and puts the profile id they carry
// into the request context.
type Manager struct {
	secret []byte
	parser *jwt.Parser
}

// NewManager creates a manager that verifies every token against secret.
func NewManager(secret string) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Manager{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}, nil
}

// Middleware authenticates the request and aborts with 401 on failure.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())
		token, err := extractBearerToken(c)
		if err != nil {
			log.Debug("Authentication failed", "reason", err.Error())
			respondUnauthorized(c, err)
			return
		}
		userID, err := m.profileID(token)
		if err != nil {
			log.Debug("Token rejected", "reason", err.Error())
			respondUnauthorized(c, err)
			return
		}
		ctx := userctx.WithUserID(c.Request.Context(), userID)
		ctx = logger.ContextWithLogger(ctx, log.With("user_id", userID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (m *Manager) profileID(raw string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}
	switch v := claims[profileClaim].(type) {
	case float64:
		return int64(v), nil
	case string:
		var id int64
		if _, err := fmt.Sscan(v, &id); err != nil {
			return 0, fmt.Errorf("invalid %s claim: %w", profileClaim, err)
		}
		return id, nil
	default:
		return 0, errors.New("token has no " + profileClaim + " claim")
	}
}

func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errors.New("no authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

func respondUnauthorized(c *gin.Context, err error) {
	problem := &core.Problem{
		Status: http.StatusUnauthorized,
		Title:  "Unauthorized",
		Detail: "Invalid or missing credentials",
		Extras: map[string]any{"code": router.ErrUnauthorizedCode},
	}
	if strings.Contains(err.Error(), "format") {
		problem.Detail = "Invalid authorization header format"
	}
	router.RespondProblem(c, problem.WithMessages(unauthorizedMessages, router.PreferredLanguage(c)))
}
