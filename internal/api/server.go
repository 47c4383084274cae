package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hyperliquid-trading-bot/config"
	"hyperliquid-trading-bot/internal/audit"
	"hyperliquid-trading-bot/internal/auth"
	"hyperliquid-trading-bot/internal/bot"
	"hyperliquid-trading-bot/internal/risksync"
)

// RateLimiter provides simple in-memory rate limiting per client.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server is the HTTP operations API: it accepts desired TP/SL levels,
// exposes the engine's view of exchange and cache state, and can force
// an immediate reconciliation pass.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        config.ServerConfig

	engine    *risksync.Engine
	gateway   risksync.OrderGateway
	positions bot.PositionFetcher
	levels    *bot.LevelsStore
	prices    risksync.PriceSource // may be nil
	recorder  *audit.Recorder      // may be nil

	jwtManager  *auth.JWTManager // nil when auth is disabled
	rateLimiter *RateLimiter
	logger      zerolog.Logger
	startedAt   time.Time
}

// Deps bundles everything the server exposes.
type Deps struct {
	Engine    *risksync.Engine
	Gateway   risksync.OrderGateway
	Positions bot.PositionFetcher
	Levels    *bot.LevelsStore
	Prices    risksync.PriceSource
	Recorder  *audit.Recorder
}

// NewServer creates the API server. jwtManager may be nil to disable
// authentication.
func NewServer(cfg config.ServerConfig, deps Deps, jwtManager *auth.JWTManager, logger zerolog.Logger) *Server {
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:         cfg,
		engine:      deps.Engine,
		gateway:     deps.Gateway,
		positions:   deps.Positions,
		levels:      deps.Levels,
		prices:      deps.Prices,
		recorder:    deps.Recorder,
		jwtManager:  jwtManager,
		rateLimiter: NewRateLimiter(30, time.Minute),
		logger:      logger.With().Str("component", "api").Logger(),
		startedAt:   time.Now(),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	s.router = router
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	if s.jwtManager != nil {
		api.Use(auth.Middleware(s.jwtManager))
	}

	risk := api.Group("/risk")
	{
		risk.POST("/levels", s.handleSetLevels)
		risk.GET("/levels/:wallet/:symbol", s.handleGetLevels)
		risk.DELETE("/levels/:wallet/:symbol", s.handleClearLevels)
		risk.POST("/reconcile", s.rateLimited(s.handleReconcile))
		risk.GET("/cache/:wallet/:symbol", s.handleGetCache)
		risk.GET("/orders/:wallet/:symbol", s.handleGetOrders)
	}

	api.GET("/prices/:symbol", s.handleGetPrice)
	api.GET("/audit/:symbol", s.handleGetAudit)
}

// rateLimited guards endpoints that translate into exchange calls.
func (s *Server) rateLimited(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		handler(c)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
