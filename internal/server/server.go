package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"supermercado/pkg/logger"
)

// Newはechoを組み立てる（recover＋リクエストログ）。
func New(log logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("latency", v.Latency.String()),
			)
			return nil
		},
	}))

	return e
}

func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}
