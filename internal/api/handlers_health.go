// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xmlstore/backend/internal/storage"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	store   storage.Store
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store storage.Store, version string) HealthHandler {
	return &HealthHandlerImpl{
		store:   store,
		version: version,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		return NewServiceUnavailableError("database unavailable", err)
	}
	return respond(c, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"database": h.store.Driver(),
	})
}
