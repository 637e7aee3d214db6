// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// FileHandler handles document ingestion and file listings
type FileHandler interface {
	HandleReadFile(c echo.Context) error
	HandleListFiles(c echo.Context) error
	HandleFileStructure(c echo.Context) error
}

// TagHandler handles tag lookups within a stored file
type TagHandler interface {
	HandleGetCount(c echo.Context) error
	HandleGetAttributes(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
