package server

import (
	"github.com/labstack/echo/v4"

	"supermercado/internal/handler"
)

func RegisterRoutes(e *echo.Echo, productH *handler.ProductHandler, orderH *handler.OrderHandler) {
	api := e.Group("/api")
	productH.RegisterRoutes(api)
	orderH.RegisterRoutes(api)
}
