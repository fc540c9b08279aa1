package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"supermercado/internal/usecase"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type OrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Qty       int64 `json:"qty"`
}

type OrderCreateRequest struct {
	CustomerName string             `json:"customer_name"`
	DeliveryDate string             `json:"delivery_date"`
	Items        []OrderItemRequest `json:"items"`
}

type OrderCreateResponse struct {
	OrderID int64  `json:"order_id"`
	Total   string `json:"total"`
	Message string `json:"message"`
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/pedidos", h.list)
	g.POST("/pedidos", h.create)
	g.GET("/pedidos/:id", h.detail)
}

func (h *OrderHandler) create(c echo.Context) error {
	var req OrderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResponse{Message: "invalid body"})
	}

	items := make([]usecase.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderItemInput{ProductID: it.ProductID, Qty: it.Qty})
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), usecase.CreateOrderInput{
		CustomerName: req.CustomerName,
		DeliveryDate: req.DeliveryDate,
		Items:        items,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, OrderCreateResponse{
		OrderID: out.OrderID,
		Total:   out.Total.StringFixed(2),
		Message: "Pedido criado com sucesso.",
	})
}

func (h *OrderHandler) list(c echo.Context) error {
	out, err := h.uc.ListOrders(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	//数値にならないidも存在しない注文として404
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, MessageResponse{Message: "Pedido não encontrado"})
	}

	out, err := h.uc.GetOrderDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
