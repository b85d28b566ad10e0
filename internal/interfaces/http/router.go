package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	prommetrics "github.com/opsdesk/filetrack/internal/infrastructure/monitoring/prometheus"
	"github.com/opsdesk/filetrack/internal/interfaces/http/handlers"
	"github.com/opsdesk/filetrack/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies needed to
// build the complete route tree.
type RouterConfig struct {
	FileHandler      *handlers.FileHandler
	AlertHandler     *handlers.AlertHandler
	DashboardHandler *handlers.DashboardHandler
	ReportHandler    *handlers.ReportHandler
	SectionHandler   *handlers.SectionHandler
	SweepHandler     *handlers.SweepHandler
	HealthHandler    *handlers.HealthHandler

	Auth    config.AuthConfig
	Logger  logging.Logger
	Metrics *prommetrics.Metrics

	// MetricsHandler serves GET /metrics, typically promhttp.Handler().
	MetricsHandler http.Handler
}

// NewRouter wires global middleware, public probes and the authenticated
// /api/v1 resource groups into one handler.
func NewRouter(cfg RouterConfig) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.MetricsRecorder(cfg.Metrics))
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	// Probes stay outside auth so orchestrators can reach them.
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Auth))

	registerFileRoutes(api, cfg.FileHandler)
	registerAlertRoutes(api, cfg.AlertHandler)
	registerDashboardRoutes(api, cfg.DashboardHandler)
	registerReportRoutes(api, cfg.ReportHandler)
	registerSectionRoutes(api, cfg.SectionHandler)
	registerAdminRoutes(api, cfg.SweepHandler)

	return r
}

func registerFileRoutes(r *gin.RouterGroup, h *handlers.FileHandler) {
	if h == nil {
		return
	}
	fr := r.Group("/files")
	fr.GET("", h.List)
	fr.POST("", middleware.RequireRoles(middleware.RoleOperator), h.Upload)
	fr.GET("/:id", h.Get)
	fr.GET("/:id/download", h.Download)
	fr.POST("/:id/complete", middleware.RequireRoles(middleware.RoleSectionOfficer, middleware.RoleOperator), h.Complete)
}

func registerAlertRoutes(r *gin.RouterGroup, h *handlers.AlertHandler) {
	if h == nil {
		return
	}
	ar := r.Group("/alerts")
	ar.GET("", h.List)
	ar.POST("/:id/read", h.MarkRead)
}

func registerDashboardRoutes(r *gin.RouterGroup, h *handlers.DashboardHandler) {
	if h == nil {
		return
	}
	dr := r.Group("/dashboard")
	dr.GET("", h.Overview)
	dr.GET("/sections", h.Sections)
}

func registerReportRoutes(r *gin.RouterGroup, h *handlers.ReportHandler) {
	if h == nil {
		return
	}
	r.GET("/reports/daily", h.Daily)
}

func registerSectionRoutes(r *gin.RouterGroup, h *handlers.SectionHandler) {
	if h == nil {
		return
	}
	sr := r.Group("/sections")
	sr.GET("", h.List)
	sr.GET("/:id", h.Get)
	sr.POST("", middleware.RequireRoles(middleware.RoleAdmin), h.Create)
}

func registerAdminRoutes(r *gin.RouterGroup, h *handlers.SweepHandler) {
	if h == nil {
		return
	}
	r.POST("/admin/sweep", middleware.RequireRoles(middleware.RoleAdmin), h.Trigger)
}
