package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	QtyStock  int64           `gorm:"column:qty_stock;not null;check:qty_stock >= 0" json:"qty_stock"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
