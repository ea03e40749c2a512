package promotion

import (
	"context"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
)

// TransactionScope provides transactional access to the pricing repositories.
// Every repository handed to fn shares one database transaction that is
// committed when fn returns nil and rolled back otherwise.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to the current transaction.
//
// Price synchronization reads campaigns and memberships and writes product and
// variant prices; membership batches and campaign lifecycle changes write their
// own rows and then resync products through the same accessors so that the
// whole flow commits or rolls back as one unit.
type TransactionalRepositories interface {
	ProductRepo() catalog.ProductRepository
	CampaignRepo() promotion.CampaignRepository
	MembershipRepo() promotion.MembershipRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// It is used in unit tests where repositories are mocks.
type NoOpTransactionScope struct {
	productRepo    catalog.ProductRepository
	campaignRepo   promotion.CampaignRepository
	membershipRepo promotion.MembershipRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	productRepo catalog.ProductRepository,
	campaignRepo promotion.CampaignRepository,
	membershipRepo promotion.MembershipRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		productRepo:    productRepo,
		campaignRepo:   campaignRepo,
		membershipRepo: membershipRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository     { return s.productRepo }
func (s *NoOpTransactionScope) CampaignRepo() promotion.CampaignRepository { return s.campaignRepo }
func (s *NoOpTransactionScope) MembershipRepo() promotion.MembershipRepository {
	return s.membershipRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
