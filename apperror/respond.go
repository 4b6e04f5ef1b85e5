package apperror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Respond writes the failure envelope for err and aborts the chain.
func Respond(c *gin.Context, logger *zerolog.Logger, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternal("Server Error", err)
	}

	status := appErr.StatusCode()
	if logger != nil {
		ev := logger.Warn()
		if status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Err(err).
			Str("type", appErr.Type.String()).
			Int("status", status).
			Str("path", c.FullPath()).
			Msg("request failed")
	}

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   appErr.Body(),
	})
}
