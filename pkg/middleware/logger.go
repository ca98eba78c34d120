package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/SirPen9uin/shop-api/pkg/context"
)

// quietPrefixes are polled by orchestrators and scrapers; successful hits
// are logged at debug.
var quietPrefixes = []string{"/api/v1/health", "/metrics"}

// Logger logs one line per request once the error handler has written the
// response.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			ctx := req.Context()
			log := logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":    context.GetRequestID(ctx),
				"user_id":       context.GetUserID(ctx),
				"method":        req.Method,
				"route":         c.Path(),
				"uri":           req.RequestURI,
				"status":        res.Status,
				"remote_ip":     c.RealIP(),
				"response_time": time.Since(start).String(),
				"response_size": res.Size,
			})

			switch {
			case res.Status >= http.StatusInternalServerError:
				log.Error("Request failed")
			case res.Status >= http.StatusBadRequest:
				log.Warn("Request rejected")
			case quiet(req.URL.Path):
				log.Debug("Request")
			default:
				log.Info("Request")
			}
			return nil
		}
	}
}

func quiet(path string) bool {
	for _, prefix := range quietPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
