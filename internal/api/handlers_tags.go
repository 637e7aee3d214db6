// handlers_tags.go - Tag lookup handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xmlstore/backend/internal/storage"
)

// TagHandlerImpl implements the TagHandler interface
type TagHandlerImpl struct {
	store storage.Store
}

// NewTagHandler creates a new tag handler instance
func NewTagHandler(store storage.Store) TagHandler {
	return &TagHandlerImpl{store: store}
}

// HandleGetCount returns how often tag_name occurs in file_name.
// Missing parameters are not validated; they simply match nothing.
func (h *TagHandlerImpl) HandleGetCount(c echo.Context) error {
	ctx := c.Request().Context()

	file, err := h.store.ResolveFile(ctx, c.QueryParam("file_name"))
	if err != nil {
		return storeError(err, "failed to resolve file")
	}

	count, err := h.store.CountTags(ctx, file.ID, c.QueryParam("tag_name"))
	if err != nil {
		return storeError(err, "failed to count tags")
	}
	return respond(c, http.StatusOK, count)
}

// HandleGetAttributes returns the distinct attribute names used on
// tag_name in file_name.
func (h *TagHandlerImpl) HandleGetAttributes(c echo.Context) error {
	ctx := c.Request().Context()

	file, err := h.store.ResolveFile(ctx, c.QueryParam("file_name"))
	if err != nil {
		return storeError(err, "failed to resolve file")
	}

	names, err := h.store.AttributeNames(ctx, file.ID, c.QueryParam("tag_name"))
	if err != nil {
		return storeError(err, "failed to list attributes")
	}
	return respond(c, http.StatusOK, names)
}
