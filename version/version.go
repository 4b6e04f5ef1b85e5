package version

import (
	"net/http"
	"runtime"

	"devcamper-backend/config"

	"github.com/gin-gonic/gin"
)

// Version information, overridable with -ldflags "-X devcamper-backend/version.Version=..."
var (
	Version    = "1.0.0"
	ServerCode = "DEVCAMPER_API_V1"
)

// GetInfoResponse holds all version information
type GetInfoResponse struct {
	Success      bool   `json:"success"`
	Version      string `json:"version"`
	GoVersion    string `json:"go_version"`
	ServerCode   string `json:"server_code"`
	ServerEnv    string `json:"server_env"`
	DatabaseName string `json:"database_name"`
}

// GetInfo returns version information for the running server.
func GetInfo(cfg *config.Config) GetInfoResponse {
	return GetInfoResponse{
		Success:      true,
		Version:      Version,
		GoVersion:    runtime.Version(),
		ServerCode:   ServerCode,
		ServerEnv:    cfg.AppEnv,
		DatabaseName: cfg.GetDatabaseName(),
	}
}

func HandleGetInfo(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, GetInfo(cfg))
	}
}
