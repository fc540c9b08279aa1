package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"supermercado/internal/usecase"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := usecase.AsValidationError(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Message: ve.Message,
			Errors:  ve.Errors,
		})
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, MessageResponse{Message: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, MessageResponse{Message: "internal error"})
}

// /api/produtos の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

func (h *ProductHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/produtos", h.list)
}

func (h *ProductHandler) list(c echo.Context) error {
	q := c.QueryParam("q")

	out, err := h.uc.SearchProducts(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
