package model

import (
	"time"

	"github.com/shopspring/decimal"

	"canteen/internal/nutrition"
)

// FoodItem is a catalog entry sold by the canteen.
type FoodItem struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"size:100;not null"`
	Image string `json:"image" gorm:"size:200;not null;default:''"`
	// Nutrition holds the encoded nutrition facts, see package nutrition.
	Nutrition   string          `json:"-" gorm:"type:text;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null;default:0"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	// IsHealthy has no gorm default so that an explicit false is inserted as-is.
	IsHealthy bool      `json:"is_healthy" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Facts decodes the stored nutrition. Malformed text yields empty facts.
func (f *FoodItem) Facts() nutrition.Facts {
	return nutrition.Decode(f.Nutrition)
}
