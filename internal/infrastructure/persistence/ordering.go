package persistence

import (
	"strings"

	"github.com/erp/pricesync/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// campaignSortColumns maps accepted order_by values to campaign columns
var campaignSortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"name":          "name",
	"start_date":    "start_date",
	"end_date":      "end_date",
	"is_active":     "is_active",
	"quantity_used": "quantity_used",
}

// orderColumn resolves field against columns, falling back to fallback for
// unknown or empty input. Only an explicit "asc" sorts ascending.
func orderColumn(field, dir string, columns map[string]string, fallback string) clause.OrderByColumn {
	name, ok := columns[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		name = fallback
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: name},
		Desc:   !strings.EqualFold(strings.TrimSpace(dir), "asc"),
	}
}

// paginate orders by the requested column with id as tie-breaker so pages
// stay stable, then applies offset and limit.
func paginate(query *gorm.DB, filter shared.Filter, columns map[string]string, fallback string) *gorm.DB {
	return query.
		Order(orderColumn(filter.OrderBy, filter.OrderDir, columns, fallback)).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}
