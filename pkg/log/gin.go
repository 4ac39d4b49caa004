package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware tags each request with a request id (taken from X-Request-ID
// or generated), stores a request logger in the context and logs the outcome.
// Paths in quiet are logged at debug so probes do not flood the output.
func GinMiddleware(logger zerolog.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(headerRequestID, reqID)

		l := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), l))

		c.Next()

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch _, isQuiet := skip[c.FullPath()]; {
		case status >= 500:
			evt = l.Error()
		case status >= 400:
			evt = l.Warn()
		case isQuiet:
			evt = l.Debug()
		default:
			evt = l.Info()
		}

		// Set by the websocket route once the viewer is registered.
		if viewerID := c.GetString(FieldViewerID); viewerID != "" {
			evt = evt.Str(FieldViewerID, viewerID)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}
		evt.Int(FieldStatus, status).
			Float64(FieldLatency, float64(time.Since(start).Microseconds())/1000).
			Msg("request completed")
	}
}
