package repository

import (
	"context"
	"errors"

	"supermercado/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品の永続化（検索・ロック取得・upsert・在庫減算）だけを約束。
type ProductRepository interface {
	// 名前の部分一致（大文字小文字区別なし）、name昇順、limit件まで
	Search(ctx context.Context, q string, limit int) ([]model.Product, error)

	// idをソートした順でFOR UPDATEロックして取得。存在しないidは結果に含まれない。
	FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error)

	// idキーで insert or update（インポート用）
	Upsert(ctx context.Context, p model.Product) error

	// 在庫が足りるときだけ減算
	DecrementStock(ctx context.Context, productID int64, qty int64) (bool, error)
}
