// routes.go - Route registration helpers
package api

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xmlstore/backend/internal/config"
	"github.com/xmlstore/backend/internal/logging"
	"github.com/xmlstore/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store        storage.Store
	Version      string
	MaxListLimit int
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	File   FileHandler
	Tag    TagHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Store, deps.Version),
		File:   NewFileHandler(deps.Store, deps.MaxListLimit),
		Tag:    NewTagHandler(deps.Store),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Ingestion
	apiGroup.POST("/file/read", handlers.File.HandleReadFile)

	// Stored files
	apiGroup.GET("/files", handlers.File.HandleListFiles)
	apiGroup.GET("/files/:id/tags", handlers.File.HandleFileStructure)

	// Tag lookups
	apiGroup.GET("/tags/get-count", handlers.Tag.HandleGetCount)
	apiGroup.GET("/tags/attributes/get", handlers.Tag.HandleGetAttributes)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	if cfg.Advanced.EnableRequestLogging {
		e.Use(RequestLogger())
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.CompressionLevel,
		}))
	}

	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}
}

// RequestLogger writes one zerolog line per request
func RequestLogger() echo.MiddlewareFunc {
	log := logging.WithComponent("http")

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return strings.HasSuffix(c.Request().URL.Path, "/health")
		},
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
