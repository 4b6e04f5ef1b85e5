package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "warn", true)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	assert.Equal(t, zerolog.InfoLevel, newWithWriter(&buf, "loud", true).GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newWithWriter(&buf, "", true).GetLevel())
}

func TestMiddlewareTagsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := newWithWriter(&buf, "info", true)

	r := gin.New()
	r.Use(Middleware(log))
	r.GET("/ping", func(c *gin.Context) {
		id, ok := c.Get("request_id")
		require.True(t, ok)
		c.String(http.StatusOK, id.(string))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())
	assert.Contains(t, buf.String(), `"path":"/ping"`)
	assert.Contains(t, buf.String(), `"status":200`)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)
}
