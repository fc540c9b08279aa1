package repository

import (
	"context"

	"gorm.io/gorm"

	repo "supermercado/internal/repository"
)

type txReposGorm struct {
	products   repo.ProductRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
}

func (r *txReposGorm) Products() repo.ProductRepository     { return r.products }
func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return r.orderItems }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:   NewProductGormRepository(tx),
			orders:     NewOrderGormRepository(tx),
			orderItems: NewOrderItemGormRepository(tx),
		}
		return fn(r)
	})
}
