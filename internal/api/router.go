package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/headless-cms-admin/internal/config"
	"github.com/headless-cms-admin/internal/metrics"
	"github.com/headless-cms-admin/internal/service"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router. collector may be nil, in
// which case /metrics is not served.
func NewRouter(services *service.Services, cfg *config.Config, collector *metrics.Collector, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.MaxMultipartMemory = cfg.Media.MaxFileSize

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log, collector))
	router.Use(corsMiddleware())

	// Handlers
	components := NewComponentHandler(services, log)
	contentTypes := NewContentTypeHandler(services, log)
	fieldTypes := NewFieldTypeHandler()
	entries := NewEntryHandler(services, log)
	media := NewMediaHandler(services, cfg, log)
	settings := NewSettingsHandler(services, log)
	transfer := NewTransferHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)
	if collector != nil {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	// API v1
	v1 := router.Group("/v1")
	{
		v1.GET("/stats", statsHandler(services))

		c := v1.Group("/components")
		{
			c.GET("", components.List)
			c.POST("", components.Create)
			c.GET("/categories", components.Categories)
			c.GET("/stats", components.Stats)
			c.POST("/import", components.Import)
			c.GET("/:id", components.Get)
			c.PUT("/:id", components.Update)
			c.DELETE("/:id", components.Delete)
			c.GET("/:id/usage", components.Usage)
			c.GET("/:id/export", components.Export)
			c.POST("/:id/fields", components.AddField)
			c.PUT("/:id/fields/:field", components.UpdateField)
			c.DELETE("/:id/fields/:field", components.RemoveField)
			c.PUT("/:id/fields-order", components.ReorderFields)
		}

		ct := v1.Group("/content-types")
		{
			ct.GET("", contentTypes.List)
			ct.POST("", contentTypes.Create)
			ct.GET("/stats", contentTypes.Stats)
			ct.GET("/api-id/:apiId", contentTypes.GetByAPIID)
			ct.GET("/:id", contentTypes.Get)
			ct.PUT("/:id", contentTypes.Update)
			ct.DELETE("/:id", contentTypes.Delete)
			ct.POST("/:id/fields", contentTypes.AddField)
			ct.PUT("/:id/fields/:field", contentTypes.UpdateField)
			ct.DELETE("/:id/fields/:field", contentTypes.RemoveField)
			ct.PUT("/:id/fields-order", contentTypes.ReorderFields)
			ct.GET("/:id/entries/export", transfer.StreamEntries)
			ct.POST("/:id/entries/import", transfer.ImportEntries)
		}

		ft := v1.Group("/field-types")
		{
			ft.GET("", fieldTypes.List)
			ft.GET("/:type", fieldTypes.Get)
		}

		e := v1.Group("/entries")
		{
			e.GET("", entries.List)
			e.POST("", entries.Create)
			e.GET("/recent", entries.Recent)
			e.GET("/stats", entries.Stats)
			e.POST("/publish-due", entries.PublishDue)
			e.GET("/:id", entries.Get)
			e.PUT("/:id", entries.Update)
			e.PATCH("/:id", entries.Patch)
			e.DELETE("/:id", entries.Delete)
			e.POST("/:id/publish", entries.Publish)
			e.POST("/:id/unpublish", entries.Unpublish)
			e.POST("/:id/schedule", entries.Schedule)
			e.POST("/:id/duplicate", entries.Duplicate)
		}

		m := v1.Group("/media")
		{
			m.GET("", media.List)
			m.POST("", media.Upload)
			m.GET("/stats", media.Stats)
			m.GET("/folders", media.Folders)
			m.DELETE("/folders/:folder", media.DeleteFolder)
			m.POST("/move", media.Move)
			m.GET("/:id", media.Get)
			m.PUT("/:id", media.Update)
			m.PUT("/:id/file", media.Replace)
			m.DELETE("/:id", media.Delete)
		}

		s := v1.Group("/settings")
		{
			s.GET("", settings.Get)
			s.PUT("", settings.Save)
			s.POST("/reset", settings.Reset)
			s.POST("/locales", settings.AddLocale)
			s.PUT("/locales/:code", settings.UpdateLocale)
			s.DELETE("/locales/:code", settings.RemoveLocale)
			s.POST("/locales/:code/default", settings.SetDefaultLocale)
			s.GET("/ui-config", settings.UIConfig)
			s.PUT("/ui-config", settings.UpdateUIConfig)
		}

		u := v1.Group("/users")
		{
			u.GET("", settings.ListUsers)
			u.POST("", settings.CreateUser)
			u.GET("/:id", settings.GetUser)
			u.PUT("/:id", settings.UpdateUser)
			u.DELETE("/:id", settings.DeleteUser)
		}

		tk := v1.Group("/tokens")
		{
			tk.GET("", settings.ListTokens)
			tk.POST("", settings.CreateToken)
			tk.POST("/verify", settings.VerifyToken)
			tk.PUT("/:id", settings.UpdateToken)
			tk.POST("/:id/regenerate", settings.RegenerateToken)
			tk.DELETE("/:id", settings.DeleteToken)
		}

		w := v1.Group("/webhooks")
		{
			w.GET("", settings.ListWebhooks)
			w.POST("", settings.CreateWebhook)
			w.PUT("/:id", settings.UpdateWebhook)
			w.POST("/:id/toggle", settings.ToggleWebhook)
			w.DELETE("/:id", settings.DeleteWebhook)
		}

		tr := v1.Group("/transfer")
		{
			tr.GET("/export", transfer.Export)
			tr.POST("/import", transfer.Import)
			tr.POST("/reconcile", transfer.Reconcile)
			tr.GET("/entries", transfer.StreamAllEntries)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "headless-cms-admin",
	})
}

// statsHandler returns the dashboard counters of every registry
func statsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"components":   services.Components.Stats(ctx),
			"contentTypes": services.ContentTypes.Stats(ctx),
			"entries":      services.Entries.Stats(ctx),
			"media":        services.Media.Stats(ctx),
			"timestamp":    time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests and records them on collector
func loggingMiddleware(log zerolog.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.HTTPRequest(c.Request.Method, route, strconv.Itoa(statusCode), duration)

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
