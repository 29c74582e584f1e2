package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mpdriver/mpdriver/engine/infra/monitoring"
	authmw "github.com/mpdriver/mpdriver/engine/infra/server/middleware/auth"
	"github.com/mpdriver/mpdriver/engine/infra/server/middleware/size"
	"github.com/mpdriver/mpdriver/engine/infra/server/router"
	"github.com/mpdriver/mpdriver/engine/infra/server/routes"
	ntrouter "github.com/mpdriver/mpdriver/engine/note/router"
	tkrouter "github.com/mpdriver/mpdriver/engine/task/router"
	"github.com/mpdriver/mpdriver/pkg/config"
	"github.com/mpdriver/mpdriver/pkg/logger"
	"github.com/mpdriver/mpdriver/pkg/version"
)

// newRouter assembles the HTTP surface. mon may be nil.
func newRouter(
	ctx context.Context,
	cfg *config.Config,
	mon *monitoring.Service,
	api *apiHandlers,
	checks map[string]HealthChecker,
) (*gin.Engine, error) {
	auth, err := authmw.NewManager(cfg.Server.Auth.Secret.Value())
	if err != nil {
		return nil, fmt.Errorf("configure token verification: %w", err)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(router.RequestID())
	if mon != nil && mon.IsInitialized() {
		r.Use(mon.GinMiddleware(ctx))
		r.GET(mon.Path(), gin.WrapH(mon.ExporterHandler()))
	}
	r.Use(LoggerMiddleware())
	r.GET(routes.Health(), CreateHealthHandler(checks, version.Get().Version))

	apiBase := r.Group(routes.Base())
	bodyLimit := size.BodySizeLimiter(size.DefaultBodyLimit)
	tkrouter.Register(apiBase, api.tasks, bodyLimit, auth.Middleware())
	ntrouter.Register(apiBase, api.notes, bodyLimit, auth.Middleware())
	return r, nil
}

func (s *Server) buildRouter(deps *dependencies) error {
	r, err := newRouter(s.ctx, s.cfg, s.monitoring, deps.api, deps.checks)
	if err != nil {
		return err
	}
	s.router = r
	return nil
}

func (s *Server) logStartupBanner() {
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(s.cfg.Server.Host), s.cfg.Server.Port)
	lines := []string{
		fmt.Sprintf("mpdriver %s", version.Get().Version),
		fmt.Sprintf("  API     > %s%s", httpURL, routes.Tasks()),
		fmt.Sprintf("  Notes   > %s%s", httpURL, routes.Notes()),
		fmt.Sprintf("  Health  > %s%s", httpURL, routes.Health()),
	}
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		lines = append(lines, fmt.Sprintf("  Metrics > %s%s", httpURL, s.monitoring.Path()))
	}
	logger.FromContext(s.ctx).Info("\n" + strings.Join(lines, "\n"))
}
