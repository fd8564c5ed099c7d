package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PRODUCT_STATUS_AVAILABLE    = "available"
	PRODUCT_STATUS_OUT_OF_STOCK = "out of stock"
)

// Product is referenced by order items through its UUID.
type Product struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UUID        string           `gorm:"type:char(36);not null;uniqueIndex" json:"uuid"`
	Name        string           `gorm:"type:varchar(200);not null" json:"name"`
	Description string           `gorm:"type:text" json:"description"`
	BasePrice   float64          `gorm:"type:decimal(12,2);not null;default:0" json:"basePrice"`
	Category    string           `gorm:"type:varchar(100);index" json:"category"`
	Status      string           `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ProductVariant holds the stock level for one color/size combination.
type ProductVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"productId"`
	Color     string    `gorm:"type:varchar(50)" json:"color"`
	Size      string    `gorm:"type:varchar(20)" json:"size"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	Price     float64   `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = PRODUCT_STATUS_AVAILABLE
	}
	return nil
}

// InStock reports whether any variant still has quantity left.
func (p *Product) InStock() bool {
	for _, v := range p.Variants {
		if v.Quantity > 0 {
			return true
		}
	}
	return false
}
