package router

// Error codes
const (
	ErrInternalCode     = "INTERNAL_ERROR"
	ErrBadRequestCode   = "BAD_REQUEST"
	ErrUnauthorizedCode = "UNAUTHORIZED"
	ErrForbiddenCode    = "FORBIDDEN"
	ErrNotFoundCode     = "NOT_FOUND"
)
