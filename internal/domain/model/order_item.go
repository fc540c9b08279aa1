package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// unit_price/subtotalは注文時点のスナップショット。後からProduct.priceが変わっても不変。
type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"not null;uniqueIndex:uniq_order_product" json:"order_id"`
	ProductID int64           `gorm:"not null;index;uniqueIndex:uniq_order_product" json:"product_id"`
	Qty       int64           `gorm:"not null" json:"qty"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Product   Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
