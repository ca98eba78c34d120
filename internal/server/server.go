// Package server builds the operational HTTP surface of the service.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/SirPen9uin/shop-api/config"
	"github.com/SirPen9uin/shop-api/pkg/health"
	"github.com/SirPen9uin/shop-api/pkg/middleware"
)

// New returns an echo instance serving health probes and Prometheus metrics.
// The embedded http.Server carries the timeouts from cfg.
func New(cfg config.Config, logger ectologger.Logger, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Server.Addr = ":" + strconv.Itoa(cfg.Port)
	e.Server.ReadTimeout = seconds(cfg.HttpServerReadTimeoutSeconds)
	e.Server.WriteTimeout = seconds(cfg.HttpServerWriteTimeoutSeconds)
	e.Server.IdleTimeout = seconds(cfg.HttpServerIdleTimeoutSeconds)
	e.Server.ReadHeaderTimeout = seconds(cfg.ReadHeaderTimeoutSeconds)
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes
	e.Server.Handler = e

	return e
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Serve runs e until it is shut down. A clean shutdown is not an error.
func Serve(e *echo.Echo, logger ectologger.Logger) {
	logger.Infof("HTTP server listening on %s", e.Server.Addr)
	if err := e.StartServer(e.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("HTTP server stopped")
	}
}
