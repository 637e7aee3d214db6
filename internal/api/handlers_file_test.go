// handlers_file_test.go - Tests for ingestion and file listing handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmlstore/backend/internal/models"
	"github.com/xmlstore/backend/internal/testutil"
)

// newUploadRequest builds a multipart request with content under field
func newUploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/file/read", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestFileHandler_HandleReadFile(t *testing.T) {
	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		wantBody   string
		wantIngest int
		wantFiles  int
	}{
		{
			name: "well-formed document",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "file", "doc.xml", `<a x="1"><b y="2"/><b/></a>`)
			},
			wantBody:   "true",
			wantIngest: 1,
			wantFiles:  1,
		},
		{
			name: "malformed document",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "file", "bad.xml", `<a><b></a>`)
			},
			wantBody:   "false",
			wantIngest: 1,
			wantFiles:  0,
		},
		{
			name: "duplicate attribute",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "file", "dup.xml", `<a x="1" x="2"/>`)
			},
			wantBody:   "false",
			wantIngest: 1,
			wantFiles:  0,
		},
		{
			name: "wrong field name",
			request: func(t *testing.T) *http.Request {
				return newUploadRequest(t, "document", "doc.xml", `<a/>`)
			},
			wantBody:   "false",
			wantIngest: 0,
		},
		{
			name: "not multipart",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/file/read", strings.NewReader(`<a/>`))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationXML)
				return req
			},
			wantBody:   "false",
			wantIngest: 0,
		},
		{
			name: "empty body",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/file/read", nil)
			},
			wantBody:   "false",
			wantIngest: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore()
			handler := NewFileHandler(store, 0)

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(tt.request(t), rec)

			require.NoError(t, handler.HandleReadFile(c))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(rec.Body.String()))
			assert.Equal(t, tt.wantIngest, store.Calls("Ingest"))

			files, err := store.ListFiles(c.Request().Context(), 0)
			require.NoError(t, err)
			assert.Len(t, files, tt.wantFiles)
		})
	}
}

func TestFileHandler_HandleReadFile_StoreFailure(t *testing.T) {
	store := testutil.NewMockStore()
	store.Err = errors.New("disk full")
	handler := NewFileHandler(store, 0)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(newUploadRequest(t, "file", "doc.xml", `<a/>`), rec)

	err := handler.HandleReadFile(c)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
}

func TestFileHandler_HandleReadFile_UsesUploadFilename(t *testing.T) {
	store := testutil.NewMockStore()
	handler := NewFileHandler(store, 0)

	e := echo.New()
	c := e.NewContext(newUploadRequest(t, "file", "reports/2024 q1.xml", `<r/>`), httptest.NewRecorder())
	require.NoError(t, handler.HandleReadFile(c))

	// multipart keeps only the base name of the client path
	f, err := store.ResolveFile(c.Request().Context(), "2024 q1.xml")
	require.NoError(t, err)
	assert.NotZero(t, f.ID)
}

func TestFileHandler_HandleListFiles(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		maxLimit   int
		wantStatus int
		wantCode   string
		wantCount  int
	}{
		{name: "default limit", query: "", wantStatus: http.StatusOK, wantCount: 3},
		{name: "explicit limit", query: "?limit=2", wantStatus: http.StatusOK, wantCount: 2},
		{name: "capped by max", query: "?limit=100", maxLimit: 1, wantStatus: http.StatusOK, wantCount: 1},
		{name: "invalid limit", query: "?limit=abc", wantStatus: http.StatusBadRequest, wantCode: "BAD_REQUEST"},
		{name: "negative limit", query: "?limit=-1", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore()
			store.AddFile("one.xml", models.Element{Name: "a"})
			store.AddFile("two.xml")
			store.AddFile("three.xml", models.Element{Name: "a"}, models.Element{Name: "b"})
			handler := NewFileHandler(store, tt.maxLimit)

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/files"+tt.query, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler.HandleListFiles(c)
			if tt.wantStatus != http.StatusOK {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantStatus, apiErr.Status)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				return
			}

			require.NoError(t, err)
			var files []models.FileSummary
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
			assert.Len(t, files, tt.wantCount)
			assert.Equal(t, "three.xml", files[0].Name)
			assert.Equal(t, int64(2), files[0].TagCount)
		})
	}
}

func TestFileHandler_HandleFileStructure(t *testing.T) {
	store := testutil.NewMockStore()
	id := store.AddFile("doc.xml",
		models.Element{Name: "a", Attrs: []models.ElementAttr{{Name: "x", Value: "1"}}},
		models.Element{Name: "b"},
	)
	handler := NewFileHandler(store, 0)
	e := echo.New()

	t.Run("existing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatInt(id, 10))

		require.NoError(t, handler.HandleFileStructure(c))

		var tags []models.TagDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
		require.Len(t, tags, 2)
		assert.Equal(t, "a", tags[0].Name)
		assert.Equal(t, "x", tags[0].Attributes[0].Name)
		assert.Empty(t, tags[1].Attributes)
	})

	t.Run("unknown file", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues("999")

		var apiErr *APIError
		require.ErrorAs(t, handler.HandleFileStructure(c), &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "file not found", apiErr.Message)
	})

	t.Run("bad id", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues("abc")

		var apiErr *APIError
		err := handler.HandleFileStructure(c)
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Equal(t, "BAD_REQUEST", apiErr.Code)

		var numErr *strconv.NumError
		assert.ErrorAs(t, err, &numErr)
	})
}
