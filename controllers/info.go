package controllers

import (
	"context"
	"net/http"

	dbpkg "wawebhook/db"

	"github.com/gin-gonic/gin"
)

// Pinger is any extra dependency the health check must reach (redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type InfoController struct {
	version string
	pingers map[string]Pinger
}

func NewInfoController(version string, pingers map[string]Pinger) *InfoController {
	return &InfoController{version: version, pingers: pingers}
}

// GET /api/v1/info/version
func (i *InfoController) Version(c *gin.Context) {
	RespondSuccess(c, gin.H{"version": i.version})
}

// GET /health_check
func (i *InfoController) HealthCheck(c *gin.Context) {
	if err := dbpkg.Ping(dbpkg.FromContext(c)); err != nil {
		RespondError(c, "database: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	for name, p := range i.pingers {
		if err := p.Ping(c.Request.Context()); err != nil {
			RespondError(c, name+": "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	RespondSuccess(c, gin.H{"status": "ok", "version": i.version})
}
