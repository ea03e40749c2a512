package models

import (
	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product aggregate.
type ProductModel struct {
	AggregateModel
	Name      string                `gorm:"type:varchar(200);not null"`
	Price     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Variants  []ProductVariantModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		BaseAggregateRoot: m.AggregateModel.root(),
		Name:              m.Name,
		Price:             m.Price,
		SalePrice:         m.SalePrice,
	}
	if len(m.Variants) > 0 {
		p.Variants = make([]catalog.ProductVariant, 0, len(m.Variants))
		for i := range m.Variants {
			p.Variants = append(p.Variants, m.Variants[i].ToDomain())
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Product.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.AggregateModel = aggregateModelOf(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Price = p.Price
	m.SalePrice = p.SalePrice
	m.Variants = make([]ProductVariantModel, 0, len(p.Variants))
	for i := range p.Variants {
		m.Variants = append(m.Variants, *ProductVariantModelFromDomain(&p.Variants[i]))
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// ProductVariantModel is the persistence model for a product variant.
type ProductVariantModel struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	SKU       string          `gorm:"column:sku;type:varchar(100)"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the persistence model to a domain ProductVariant.
func (m *ProductVariantModel) ToDomain() catalog.ProductVariant {
	return catalog.ProductVariant{
		BaseEntity: m.BaseModel.entity(),
		ProductID:  m.ProductID,
		Name:       m.Name,
		SKU:        m.SKU,
		Price:      m.Price,
		SalePrice:  m.SalePrice,
	}
}

// ProductVariantModelFromDomain creates a persistence model from a domain ProductVariant.
func ProductVariantModelFromDomain(v *catalog.ProductVariant) *ProductVariantModel {
	m := &ProductVariantModel{
		ProductID: v.ProductID,
		Name:      v.Name,
		SKU:       v.SKU,
		Price:     v.Price,
		SalePrice: v.SalePrice,
	}
	m.BaseModel = baseModelOf(v.BaseEntity)
	return m
}
