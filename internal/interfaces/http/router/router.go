// Package router assembles the Gin engine of the PD-MEWS API.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/internal/interfaces/http/handlers"
	"github.com/turtacn/pdmews/internal/interfaces/http/middleware"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/logger"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Health   *handlers.HealthHandler
	Identity *handlers.IdentityHandler
	Signals  *handlers.SignalHandler
	Risk     *handlers.RiskHandler
	Legal    *handlers.LegalHandler
	// Metrics serves /metrics; omitted when nil.
	Metrics http.Handler
	// Limiter meters the expensive routes; no limiting when nil.
	Limiter service.RateLimiter
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	config   config.ServerConfig
	logger   logger.Logger
	handlers Handlers
	tracer   trace.Tracer
	metrics  service.Metrics
	server   *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(cfg config.ServerConfig, h Handlers, tracer trace.Tracer, metrics service.Metrics, log logger.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	r := &Router{
		engine:   gin.New(),
		config:   cfg,
		logger:   log.WithComponent("http"),
		handlers: h,
		tracer:   tracer,
		metrics:  metrics,
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:           cfg.Address(),
		Handler:        r.engine,
		ReadTimeout:    time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return r
}

func (r *Router) setupRoutes() {
	r.engine.Use(
		middleware.RequestID(),
		middleware.ObservabilityMiddleware(r.tracer, r.metrics),
		middleware.Recovery(r.logger),
		middleware.Logging(r.logger),
	)

	// CORS 配置
	origins := r.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderRequestID},
		ExposeHeaders: []string{constants.HeaderRequestID, "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))

	r.engine.GET("/health", r.handlers.Health.HealthCheck)
	r.engine.GET("/ready", r.handlers.Health.ReadinessCheck)
	r.engine.GET("/live", r.handlers.Health.LivenessCheck)

	if r.handlers.Metrics != nil {
		r.engine.GET("/metrics", gin.WrapH(r.handlers.Metrics))
	}

	// Pprof 性能分析（仅在非生产环境）
	if r.config.Environment != constants.EnvProduction {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		identity := v1.Group("/identity")
		identity.POST("/users", r.handlers.Identity.CreateUser)
		identity.POST("/identifiers", r.metered(r.handlers.Identity.AddIdentifier)...)

		v1.POST("/sources", r.handlers.Signals.AddExposure)
		v1.GET("/sources/:user_id", r.handlers.Signals.ListExposures)
		v1.POST("/events", r.handlers.Signals.ReportEvent)
		v1.GET("/events/:user_id", r.handlers.Signals.ListEvents)

		risk := v1.Group("/risk")
		risk.POST("/analyze/:user_id", r.metered(r.handlers.Risk.Analyze)...)
		risk.GET("/assessments/:user_id", r.handlers.Risk.ListAssessments)
		risk.GET("/crowd/:app_name", r.handlers.Risk.CrowdStanding)
		risk.GET("/trust/:app_name", r.handlers.Risk.TrustScore)

		v1.GET("/alerts/:user_id", r.handlers.Risk.ListAlerts)

		legal := v1.Group("/legal")
		legal.POST("/preserve/:assessment_id", r.handlers.Legal.Preserve)
		legal.GET("/verify/:assessment_id", r.handlers.Legal.Verify)
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// metered prefixes h with the rate limiter when one is configured.
func (r *Router) metered(h gin.HandlerFunc) []gin.HandlerFunc {
	if r.handlers.Limiter == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{middleware.RateLimit(r.handlers.Limiter, r.logger), h}
}

// Start 启动 HTTP 服务器，直到 Stop 被调用才返回
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅关闭 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
