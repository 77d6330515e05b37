package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// NewRouter wires every route. gatherer backs /metrics; nil means the
// default registry.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Office Hours Scheduler API",
			"version": Version,
		})
	})
	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := h.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
		admin.GET("/runs", h.ListRuns)
	}

	// Scheduler Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/run", h.RunWeek)
		api.POST("/preview", h.PreviewWeek)
		api.GET("/weeks", h.ListWeeks)
		api.GET("/weeks/:week", h.GetWeek)
		api.GET("/weeks/:week/staff/:email", h.GetStaffWeek)
		api.POST("/validate", h.ValidateAvailability)
		api.POST("/solve", h.Solve)
		api.GET("/usage", h.GetMyUsage)
	}

	return r
}
