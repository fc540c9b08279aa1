package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerName string          `gorm:"type:varchar(120);not null" json:"customer_name"`
	DeliveryDate time.Time       `gorm:"type:date;not null" json:"delivery_date"`
	Total        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Items        []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
