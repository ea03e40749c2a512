package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// VariantScopeColumn stores a membership's variant scope.
// SQL NULL means every variant of the product; otherwise a JSON array of variant IDs.
// Models hold it by pointer: GORM leaves a nil pointer for NULL without calling Scan.
type VariantScopeColumn struct {
	promotion.VariantScope
}

// NewVariantScopeColumn returns nil for the ALL scope so it is written as NULL.
func NewVariantScopeColumn(scope promotion.VariantScope) *VariantScopeColumn {
	if scope.IsAll() {
		return nil
	}
	return &VariantScopeColumn{VariantScope: scope}
}

// Scope maps a nil column back to ALL.
func (c *VariantScopeColumn) Scope() promotion.VariantScope {
	if c == nil {
		return promotion.ScopeAll()
	}
	return c.VariantScope
}

// Value implements driver.Valuer
func (c VariantScopeColumn) Value() (driver.Value, error) {
	if c.IsAll() {
		return nil, nil
	}
	ids := c.IDs()
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *VariantScopeColumn) Scan(value any) error {
	if value == nil {
		c.VariantScope = promotion.ScopeAll()
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into VariantScopeColumn", value)
	}

	if len(data) == 0 || string(data) == "null" {
		c.VariantScope = promotion.ScopeAll()
		return nil
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("invalid variant scope %q: %w", string(data), err)
	}
	c.VariantScope = promotion.ScopeOf(ids...)
	return nil
}

// GormDBDataType picks the JSON column type of the connected dialect
func (VariantScopeColumn) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	default:
		return "JSON"
	}
}
