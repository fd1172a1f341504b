package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agentrix/internal/log"
	"agentrix/internal/metrics"
)

// RouterOpts describes optional routes.
type RouterOpts struct {
	// MetricsHandler, if set, is served at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter creates a gin engine serving:
//
//	POST /chat    - answer a chat message
//	GET  /healthz - liveness
//	GET  /metrics - pipeline metrics, when a metrics handler is configured
func NewRouter(handlers *Handlers, emitter metrics.Emitter, logger log.Logger, opts RouterOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handlers.HandleHealth)

	if opts.MetricsHandler != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}

		router.GET(path, gin.WrapH(opts.MetricsHandler))
	}

	chat := router.Group("/", SessionMiddleware(), TrackResponse(emitter, logger))
	chat.POST("/chat", handlers.HandleChat)

	return router
}
