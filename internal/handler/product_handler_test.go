package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"supermercado/internal/domain/model"
	"supermercado/internal/handler"
	"supermercado/internal/usecase"
)

func newProductServer() (*HProductRepoMock, *echo.Echo) {
	products := new(HProductRepoMock)
	uc := usecase.NewProductUsecase(products, hClock{})
	h := handler.NewProductHandler(uc)

	e := echo.New()
	h.RegisterRoutes(e.Group("/api"))
	return products, e
}

func TestProductList_Returns200(t *testing.T) {
	products, e := newProductServer()

	products.On("Search", mock.Anything, "arroz", 10).Return([]model.Product{
		{ID: 1, Name: "Arroz", Price: dec("10.00"), QtyStock: 5},
	}, nil)

	rec := doJSON(e, http.MethodGet, "/api/produtos?q=arroz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []usecase.ProductOutput
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
	assert.Equal(t, "10.00", resp[0].Price)
	assert.Equal(t, int64(5), resp[0].QtyStock)
}

func TestProductList_NoQuery_Returns200(t *testing.T) {
	products, e := newProductServer()

	products.On("Search", mock.Anything, "", 10).Return([]model.Product{}, nil)

	rec := doJSON(e, http.MethodGet, "/api/produtos", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}
