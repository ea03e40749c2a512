package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the persistence the pricing engine needs from the catalog.
// Products are owned by the catalog; this service only writes derived prices.
type ProductRepository interface {
	// FindByID loads a product with its variants
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate loads a product with its variants and locks the product row
	// until the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs loads several products with their variants
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// ExistsByID checks whether a product exists
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)

	// Save creates or updates a product together with its variants
	Save(ctx context.Context, product *Product) error

	// UpdateVariantSalePrice writes one variant's derived sale price
	UpdateVariantSalePrice(ctx context.Context, variantID uuid.UUID, salePrice decimal.Decimal) error

	// UpdatePrices writes the product's aggregate price and sale price
	UpdatePrices(ctx context.Context, productID uuid.UUID, price, salePrice decimal.Decimal) error
}
