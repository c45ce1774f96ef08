package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents a catalog listing.
type Product struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	Description   string    `gorm:"column:description;not null"`
	PriceCents    int64     `gorm:"column:price_cents;not null"`
	ImageURL      string    `gorm:"column:image_url"`
	ImagePublicID string    `gorm:"column:image_public_id"`
	Category      string    `gorm:"column:category;not null;index"`
	StockCount    int       `gorm:"column:stock_count;not null;default:0"`
	IsFeatured    bool      `gorm:"column:is_featured;not null;default:false;index"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
