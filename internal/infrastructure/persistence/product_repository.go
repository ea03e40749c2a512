package persistence

import (
	"context"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func preloadVariants(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID loads a product with its variants
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Variants", preloadVariants).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("find product", err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads a product with its variants and takes a row lock on
// the product until the surrounding transaction ends. Concurrent syncs of the
// same product serialize on this lock.
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Variants", preloadVariants).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError("lock product", err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads several products with their variants, ordered by ID
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}

	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Variants", preloadVariants).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, translateError("find products", err)
	}

	products := make([]catalog.Product, 0, len(rows))
	for i := range rows {
		products = append(products, *rows[i].ToDomain())
	}
	return products, nil
}

// ExistsByID checks whether a product exists
func (r *GormProductRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, translateError("count products", err)
	}
	return count > 0, nil
}

// Save creates or updates a product together with its variants
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(model).Error; err != nil {
			return err
		}
		for i := range model.Variants {
			if err := tx.Save(&model.Variants[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translateError("save product", err)
}

// UpdateVariantSalePrice writes one variant's derived sale price
func (r *GormProductRepository) UpdateVariantSalePrice(ctx context.Context, variantID uuid.UUID, salePrice decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.ProductVariantModel{}).
		Where("id = ?", variantID).
		Update("sale_price", salePrice)
	if result.Error != nil {
		return translateError("update variant sale price", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Product variant")
	}
	return nil
}

// UpdatePrices writes the product's aggregate price and sale price and bumps its version
func (r *GormProductRepository) UpdatePrices(ctx context.Context, productID uuid.UUID, price, salePrice decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"price":      price,
			"sale_price": salePrice,
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return translateError("update product prices", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Product")
	}
	return nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
