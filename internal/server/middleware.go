package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agentrix/internal/log"
	"agentrix/internal/metrics"
	"agentrix/internal/output"
	"agentrix/internal/session"
)

// SessionHeader is the request and response header carrying the conversation identifier.
const SessionHeader = "Conversation-ID"

// SessionMiddleware attributes the request to the conversation named by the Conversation-ID
// header. A new identifier is generated for requests that omit it. The identifier is echoed back on
// the response.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(SessionHeader, id)
		c.Request = c.Request.WithContext(session.With(c.Request.Context(), id))

		c.Next()
	}
}

// TrackResponse records everything the downstream handlers write to the response body as a single
// displayed_output metric per request. Output written before a handler panics is still recorded.
func TrackResponse(emitter metrics.Emitter, logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		writer := &interceptingWriter{
			ResponseWriter: c.Writer,
			interceptor:    output.NewInterceptor(c.Request.Context(), c.Writer, emitter),
			logger:         logger,
			path:           c.Request.URL.Path,
		}
		c.Writer = writer

		// Nothing to record until the body is written; flushing earlier would commit the status
		// before a recovering middleware can replace it.
		defer func() {
			if writer.Written() {
				writer.Flush()
			}
		}()

		c.Next()
	}
}

// interceptingWriter routes response body writes through an output interceptor.
type interceptingWriter struct {
	gin.ResponseWriter
	interceptor *output.Interceptor
	logger      log.Logger
	path        string
}

func (w *interceptingWriter) Write(p []byte) (int, error) {
	return w.interceptor.Write(p)
}

func (w *interceptingWriter) WriteString(s string) (int, error) {
	return w.interceptor.WriteString(s)
}

// Flush emits what has been written so far, for handlers that stream their response.
func (w *interceptingWriter) Flush() {
	if err := w.interceptor.Flush(); err != nil {
		w.logger.Warn("server: error flushing response: path=%s err=%v", w.path, err)
	}
}
