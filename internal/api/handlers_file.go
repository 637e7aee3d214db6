// handlers_file.go - Document ingestion and file listing handlers
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/xmlstore/backend/internal/logging"
	"github.com/xmlstore/backend/internal/parser"
	"github.com/xmlstore/backend/internal/storage"
)

const defaultListLimit = 50

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store        storage.Store
	maxListLimit int
	log          zerolog.Logger
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, maxListLimit int) FileHandler {
	return &FileHandlerImpl{
		store:        store,
		maxListLimit: maxListLimit,
		log:          logging.WithComponent("ingest"),
	}
}

// HandleReadFile ingests the multipart "file" upload and answers true or
// false. A missing upload and a malformed document both answer false.
func (h *FileHandlerImpl) HandleReadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		return err
	}
	if err != nil {
		h.log.Debug().Err(err).Msg("no file part in request")
		return respond(c, http.StatusOK, false)
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	_, err = h.store.Ingest(c.Request().Context(), file.Filename, parser.Elements(src))
	switch {
	case err == nil:
		return respond(c, http.StatusOK, true)
	case errors.Is(err, parser.ErrMalformed):
		return respond(c, http.StatusOK, false)
	default:
		return NewInternalError("failed to store document", err)
	}
}

// HandleListFiles returns the most recently ingested files
func (h *FileHandlerImpl) HandleListFiles(c echo.Context) error {
	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return NewBadRequestError("limit must be an integer", err)
		}
		if n <= 0 {
			return NewValidationError("limit")
		}
		limit = n
	}
	if h.maxListLimit > 0 && limit > h.maxListLimit {
		limit = h.maxListLimit
	}

	files, err := h.store.ListFiles(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return respond(c, http.StatusOK, files)
}

// HandleFileStructure returns every tag of a file with its attributes
func (h *FileHandlerImpl) HandleFileStructure(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewBadRequestError("file id must be an integer", err)
	}

	tags, err := h.store.FileStructure(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "failed to load file structure")
	}
	return respond(c, http.StatusOK, tags)
}
