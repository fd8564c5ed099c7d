package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sodiqbhoy1/wears/app/models"
)

// productRepository implements the ProductRepository interface
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a product together with its variants
func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByUUID retrieves a product and its variants by UUID
func (r *productRepository) GetByUUID(ctx context.Context, uuid string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Variants").Where("uuid = ?", uuid).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetByID retrieves a product and its variants by ID
func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Variants").First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) DecrementVariantStock(ctx context.Context, variantID uint, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ? AND quantity >= ?", variantID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) DrainVariantStock(ctx context.Context, variantID uint) (int, error) {
	var held int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var variant models.ProductVariant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&variant, variantID).Error; err != nil {
			return err
		}
		held = variant.Quantity
		return tx.Model(&models.ProductVariant{}).Where("id = ?", variantID).Update("quantity", 0).Error
	})
	return held, err
}

// MarkOutOfStockIfDepleted flips the product status once no variant has stock left
func (r *productRepository) MarkOutOfStockIfDepleted(ctx context.Context, productID uint) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Product{}).
		Where("id = ? AND status <> ?", productID, models.PRODUCT_STATUS_OUT_OF_STOCK).
		Where("NOT EXISTS (?)", db.Model(&models.ProductVariant{}).
			Select("1").
			Where("product_variants.product_id = ? AND product_variants.quantity > 0", productID)).
		Update("status", models.PRODUCT_STATUS_OUT_OF_STOCK)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
