package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens GORM on the postgres dialector over a sqlmock connection
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

var productColumns = []string{"id", "created_at", "updated_at", "version", "name", "price", "sale_price"}

func TestGormProductRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("locks the product row and preloads variants", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		variantID := uuid.New()
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY "products"."id" LIMIT .+ FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow(productID, now, now, 3, "Desk", "100", "90"))
		mock.ExpectQuery(`SELECT \* FROM "product_variants" WHERE "product_variants"."product_id" = \$1 ORDER BY created_at ASC, id ASC`).
			WithArgs(productID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "product_id", "name", "sku", "price", "sale_price"}).
				AddRow(variantID, now, now, productID, "Oak", "DESK-OAK", "100", "90"))

		product, err := repo.FindByIDForUpdate(context.Background(), productID)

		require.NoError(t, err)
		assert.Equal(t, productID, product.ID)
		assert.Equal(t, 3, product.Version)
		require.Len(t, product.Variants, 1)
		assert.Equal(t, variantID, product.Variants[0].ID)
		assert.True(t, decimal.NewFromInt(90).Equal(product.Variants[0].SalePrice))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows(productColumns))

		product, err := repo.FindByIDForUpdate(context.Background(), productID)

		assert.Nil(t, product)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_UpdatePrices(t *testing.T) {
	t.Run("writes both prices and bumps version", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		productID := uuid.New()
		mock.ExpectExec(`UPDATE "products" SET "price"=\$1,"sale_price"=\$2,.*"version"=version \+ 1.* WHERE id = `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdatePrices(context.Background(), productID, decimal.NewFromInt(100), decimal.NewFromInt(80))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a vanished product", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		mock.ExpectExec(`UPDATE "products"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePrices(context.Background(), uuid.New(), decimal.Zero, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormProductRepository_UpdateVariantSalePrice(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)

	variantID := uuid.New()
	mock.ExpectExec(`UPDATE "product_variants" SET "sale_price"=\$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), variantID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateVariantSalePrice(context.Background(), variantID, decimal.NewFromInt(25)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCampaignRepository_FindBoundaryCrossing(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormCampaignRepository(db)

	from := time.Date(2026, 3, 1, 9, 40, 0, 0, time.UTC)
	to := from.Add(20 * time.Minute)
	campaignID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "campaigns" WHERE is_active = \$1 AND .*start_date BETWEEN \$2 AND \$3.* OR .*end_date BETWEEN \$4 AND \$5.* ORDER BY id ASC`).
		WithArgs(true, from, to, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "discount_percent", "start_date", "end_date", "is_active"}).
			AddRow(campaignID, "Flash", "10", from.Add(5*time.Minute), to.Add(time.Hour), true))

	campaigns, err := repo.FindBoundaryCrossing(context.Background(), from, to)

	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, campaignID, campaigns[0].ID)
	assert.Equal(t, promotion.DiscountKindPercent, campaigns[0].Discount.Kind())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCampaignRepository_ExistsByNameKey(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormCampaignRepository(db)

	excludeID := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "campaigns" WHERE name_key = \$1 AND id <> \$2`).
		WithArgs("summer sale", excludeID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByNameKey(context.Background(), "summer sale", &excludeID)

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMembershipRepository_FindProductIDsByCampaigns(t *testing.T) {
	t.Run("returns distinct sorted ids", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormMembershipRepository(db)

		c1, c2 := uuid.New(), uuid.New()
		p1, p2 := uuid.New(), uuid.New()
		mock.ExpectQuery(`SELECT DISTINCT "product_id" FROM "campaign_memberships" WHERE campaign_id IN \(\$1,\$2\) ORDER BY product_id ASC`).
			WithArgs(c1, c2).
			WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow(p1).AddRow(p2))

		ids, err := repo.FindProductIDsByCampaigns(context.Background(), []uuid.UUID{c1, c2})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{p1, p2}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips the query for no campaigns", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormMembershipRepository(db)

		ids, err := repo.FindProductIDsByCampaigns(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMembershipRepository_Delete(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormMembershipRepository(db)

	productID, campaignID := uuid.New(), uuid.New()
	mock.ExpectExec(`DELETE FROM "campaign_memberships" WHERE product_id = \$1 AND campaign_id = \$2`).
		WithArgs(productID, campaignID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), productID, campaignID)

	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMembershipRepository_SaveRejectsEmptyScope(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormMembershipRepository(db)

	m := promotion.NewMembership(uuid.New(), uuid.New(), promotion.ScopeOf(), time.Now())
	err := repo.Save(context.Background(), m)

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}
