package usecase

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"supermercado/internal/domain/model"
	repo "supermercado/internal/repository"
)

// オートコンプリート用なので件数は固定で絞る
const productSearchLimit = 10

type ProductUsecase struct {
	products repo.ProductRepository
	clock    Clock
}

// DI
func NewProductUsecase(products repo.ProductRepository, clock Clock) *ProductUsecase {
	return &ProductUsecase{products: products, clock: clock}
}

type ProductOutput struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	QtyStock int64  `json:"qty_stock"`
}

func (u *ProductUsecase) SearchProducts(ctx context.Context, q string) ([]ProductOutput, error) {
	products, err := u.products.Search(ctx, strings.TrimSpace(q), productSearchLimit)
	if err != nil {
		return []ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]ProductOutput, 0, len(products))
	for _, p := range products {
		outs = append(outs, ProductOutput{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price.StringFixed(2),
			QtyStock: p.QtyStock,
		})
	}
	return outs, nil
}

type UpsertProductInput struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	QtyStock int64
}

// インポートからのinsert or update（idキー）
func (u *ProductUsecase) UpsertProduct(ctx context.Context, in UpsertProductInput) error {
	fe := newFieldErrors()
	if in.ID <= 0 {
		fe.add("id", "The id field is required.")
	}
	if strings.TrimSpace(in.Name) == "" {
		fe.add("name", "The name field is required.")
	}
	if in.Price.IsNegative() {
		fe.add("price", "The price must be at least 0.")
	}
	if in.QtyStock < 0 {
		fe.add("qty_stock", "The qty_stock must be at least 0.")
	}
	if fe.any() {
		return fe.toError()
	}

	now := u.clock.Now()
	err := u.products.Upsert(ctx, model.Product{
		ID:        in.ID,
		Name:      strings.TrimSpace(in.Name),
		Price:     in.Price.Round(2),
		QtyStock:  in.QtyStock,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
