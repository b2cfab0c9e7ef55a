package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context keys handlers set so the request log can say what was compiled.
const (
	KeyProtocol = "wlgen.protocol"
	KeyFormat   = "wlgen.format"
	KeyStrict   = "wlgen.strict"
	KeyFailure  = "wlgen.failure"
)

// RequestLogger writes one line per request. Schema routes add the protocol,
// format, strict flag and failure kind they recorded on the context.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		event = event.
			Str("method", c.Request.Method).
			Str("route", routeOf(c)).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size())
		if v := c.GetString(KeyProtocol); v != "" {
			event = event.Str("protocol", v)
		}
		if v := c.GetString(KeyFormat); v != "" {
			event = event.Str("format", v)
		}
		if _, ok := c.Get(KeyStrict); ok {
			event = event.Bool("strict", c.GetBool(KeyStrict))
		}
		if v := c.GetString(KeyFailure); v != "" {
			event = event.Str("failure", v)
		}
		event.Msg("http_request")
	}
}

func RequestMetricsMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordHTTPRequest(c.Request.Method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}

// routeOf prefers the registered route so ids in paths do not explode label
// cardinality.
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return c.Request.URL.Path
}
