package repository

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supermercado/internal/domain/model"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 名前の部分一致検索。ロックは取らない（オートコンプリート用）。
func (r *ProductGormRepository) Search(ctx context.Context, q string, limit int) ([]model.Product, error) {
	tx := r.db.WithContext(ctx).Model(&model.Product{})

	if strings.TrimSpace(q) != "" {
		like := "%" + strings.TrimSpace(q) + "%"
		tx = tx.Where("name ILIKE ?", like)
	}

	var products []model.Product
	if err := tx.Order("name asc").Limit(limit).Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 参照される商品行をまとめてFOR UPDATEで取得。
// idは昇順に揃えてからロックする（リクエスト間でロック順を一定にしてデッドロック回避）。
func (r *ProductGormRepository) FindByIDsForUpdate(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	sorted := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var products []model.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// idキーのupsert（インポート）。既存行はname/price/qty_stockを上書き。
func (r *ProductGormRepository) Upsert(ctx context.Context, p model.Product) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "price", "qty_stock", "updated_at"}),
		}).
		Create(&p).Error
}

// 在庫が足りるときだけ減らす
func (r *ProductGormRepository) DecrementStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND qty_stock >= ?", productID, qty).
		Update("qty_stock", gorm.Expr("qty_stock - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}
