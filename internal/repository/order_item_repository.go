package repository

import (
	"context"

	"supermercado/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error

	// Productを紐付けて返す（明細表示用）
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
