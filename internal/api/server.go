package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cuemap/cuemap/internal/cuemap"
	"github.com/cuemap/cuemap/internal/jobqueue"
	"github.com/cuemap/cuemap/internal/lexicon"
	"github.com/cuemap/cuemap/internal/logging"
	"github.com/cuemap/cuemap/internal/ratelimit"
	"github.com/cuemap/cuemap/pkg/config"
)

// Server is CueMap's REST API server: a Gin router in front of a tenant
// Router, a lexicon for grounded recall, and a background job queue.
type Server struct {
	router     *gin.Engine
	tenants    *cuemap.Router
	lex        *lexicon.Lexicon
	chunker    *cuemap.Chunker
	jobs       *jobqueue.Queue
	limiter    *ratelimit.Limiter
	config     *config.Config
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer builds a Server wired to the given tenant router and config.
// jobs and the job queue context are owned by the caller (typically
// cmd/cuemap's serve command), which should call Stop on shutdown.
func NewServer(tenants *cuemap.Router, cfg *config.Config, jobs *jobqueue.Queue) *Server {
	log := logging.GetLogger("api")
	log.Info("initializing REST API server")

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.RestAPI.CORS {
		log.Debug("enabling CORS")
		corsConfig := cors.Config{
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", "X-Project-ID"},
			ExposeHeaders: []string{"Content-Length", "Retry-After"},
			MaxAge:        12 * time.Hour,
		}

		switch {
		case len(cfg.RestAPI.AllowOrigins) > 0:
			corsConfig.AllowOrigins = cfg.RestAPI.AllowOrigins
		case cfg.RestAPI.APIKey != "":
			corsConfig.AllowOrigins = []string{
				"http://localhost:*",
				"http://127.0.0.1:*",
				"https://localhost:*",
				"https://127.0.0.1:*",
			}
			corsConfig.AllowWildcard = true
		default:
			corsConfig.AllowAllOrigins = true
		}

		router.Use(cors.New(corsConfig))
	}

	if cfg.RestAPI.APIKey != "" {
		log.Info("API key authentication enabled")
		router.Use(APIKeyAuthMiddleware(cfg.RestAPI.APIKey))
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		log.Info("rate limiting enabled")
		rlCfg := &ratelimit.Config{
			Enabled: cfg.RateLimit.Enabled,
			Global: ratelimit.LimitConfig{
				RequestsPerSecond: cfg.RateLimit.Global.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.Global.BurstSize,
			},
		}
		for _, route := range cfg.RateLimit.Routes {
			rlCfg.Routes = append(rlCfg.Routes, ratelimit.RouteLimit{
				Name:              route.Name,
				RequestsPerSecond: route.RequestsPerSecond,
				BurstSize:         route.BurstSize,
			})
		}
		limiter = ratelimit.NewLimiter(rlCfg)
		router.Use(RateLimitMiddleware(limiter))
	}

	router.Use(MaxBodySizeMiddleware(DefaultBodyLimit))

	server := &Server{
		router:  router,
		tenants: tenants,
		lex:     lexicon.New(nil),
		chunker: cuemap.NewChunker(cuemap.DefaultChunkConfig()),
		jobs:    jobs,
		limiter: limiter,
		config:  cfg,
		log:     log,
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API routes per §6's table.
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		api.GET("/health", s.healthHandler)

		api.POST("/memories", s.createMemory)
		api.GET("/memories/:id", s.getMemory)
		api.PATCH("/memories/:id/reinforce", s.reinforceMemory)

		api.POST("/recall", s.recall)
		api.POST("/recall/grounded", s.recallGrounded)

		api.GET("/stats", s.stats)

		api.POST("/aliases", s.createAlias)
		api.POST("/aliases/merge", s.mergeAliases)
		api.GET("/aliases", s.listAliases)

		api.POST("/tenants", s.createTenant)
		api.GET("/tenants", s.listTenants)
		api.DELETE("/tenants/:id", s.dropTenant)
	}
}

// tenantEngine resolves the engine for the request's X-Project-ID header,
// auto-provisioning the tenant when tenancy is enabled and it doesn't
// exist yet; otherwise it fails closed with TenantMissing (§7).
func (s *Server) tenantEngine(c *gin.Context) (*cuemap.Engine, error) {
	projectID := c.GetHeader("X-Project-ID")
	if projectID == "" {
		projectID = cuemap.DefaultTenant
	}
	if e, ok := s.tenants.Engine(projectID); ok {
		return e, nil
	}
	if s.config.Tenancy.Enabled {
		return s.tenants.CreateTenant(projectID), nil
	}
	return nil, &cuemap.Error{
		Kind:    cuemap.KindTenantMissing,
		Op:      "tenantEngine",
		Message: fmt.Sprintf("tenant %q not found", projectID),
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	port := s.config.RestAPI.Port
	if s.config.RestAPI.AutoPort {
		availablePort, err := findAvailablePort(port)
		if err != nil {
			s.log.Error("failed to find available port", "error", err, "start_port", port)
			return fmt.Errorf("failed to find available port: %w", err)
		}
		port = availablePort
		s.log.Debug("found available port", "port", port)
	}

	addr := fmt.Sprintf("%s:%d", s.config.RestAPI.Host, port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	s.log.Info("starting REST API server", "address", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithContext starts the HTTP server with graceful shutdown support.
// It blocks until ctx is cancelled or the server encounters an error.
func (s *Server) StartWithContext(ctx context.Context, shutdownTimeout time.Duration) error {
	port := s.config.RestAPI.Port
	if s.config.RestAPI.AutoPort {
		availablePort, err := findAvailablePort(port)
		if err != nil {
			s.log.Error("failed to find available port", "error", err, "start_port", port)
			return fmt.Errorf("failed to find available port: %w", err)
		}
		port = availablePort
		s.log.Debug("found available port", "port", port)
	}

	addr := fmt.Sprintf("%s:%d", s.config.RestAPI.Host, port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting REST API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping REST API server")
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("server shutdown error", "error", err)
			return err
		}
		s.log.Info("REST API server stopped")
	}
	return nil
}

// Router returns the underlying Gin router, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// findAvailablePort finds an available port starting from startPort.
func findAvailablePort(startPort int) (int, error) {
	for port := startPort; port < startPort+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found in range %d-%d", startPort, startPort+100)
}
