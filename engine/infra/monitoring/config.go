package monitoring

import (
	"fmt"
	"strings"

	"github.com/mpdriver/mpdriver/engine/infra/server/routes"
)

// Config selects whether metrics are exported and where.
type Config struct {
	Enabled bool
	Path    string
}

func DefaultConfig() *Config {
	return &Config{Path: "/metrics"}
}

// Validate rejects paths that are empty, relative, carry a query or fragment, or
// would shadow the API or health routes.
func (c *Config) Validate() error {
	switch {
	case c.Path == "":
		return fmt.Errorf("monitoring path cannot be empty")
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("monitoring path must start with '/': got %q", c.Path)
	case strings.ContainsAny(c.Path, "?#"):
		return fmt.Errorf("monitoring path %q must not carry a query or fragment", c.Path)
	case strings.HasPrefix(c.Path, "/api/"), c.Path == "/api":
		return fmt.Errorf("monitoring path %q collides with /api/ routes", c.Path)
	case c.Path == routes.Health():
		return fmt.Errorf("monitoring path %q collides with the health route", c.Path)
	}
	return nil
}
