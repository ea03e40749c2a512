package persistence

import (
	"context"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to the callback runs on the same *gorm.DB transaction.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction, committing when fn returns nil
// and rolling back otherwise. Commit failures are translated like query errors.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppromotion.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateError("transaction", err)
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) CampaignRepo() promotion.CampaignRepository {
	return NewGormCampaignRepository(r.tx)
}

func (r *gormTransactionalRepositories) MembershipRepo() promotion.MembershipRepository {
	return NewGormMembershipRepository(r.tx)
}

var _ apppromotion.TransactionScope = (*GormTransactionScope)(nil)
var _ apppromotion.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
