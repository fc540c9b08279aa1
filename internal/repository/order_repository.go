package repository

import (
	"context"

	"supermercado/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 新しい順（id desc）の一覧
	ListRecent(ctx context.Context) ([]model.Order, error)
}
