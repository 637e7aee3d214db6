package api

import (
	"bytes"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// MIMEApplicationMsgpack is the content type of MessagePack responses.
const MIMEApplicationMsgpack = "application/msgpack"

// respond writes body as JSON, or as MessagePack when the client asks for it.
func respond(c echo.Context, status int, body interface{}) error {
	if !wantsMsgpack(c) {
		return c.JSON(status, body)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(body); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(status, MIMEApplicationMsgpack, buf.Bytes())
}

func wantsMsgpack(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, MIMEApplicationMsgpack) ||
		strings.Contains(accept, "application/x-msgpack")
}
