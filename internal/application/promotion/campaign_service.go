package promotion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/erp/pricesync/internal/domain/catalog"
	"github.com/erp/pricesync/internal/domain/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultForceSyncConcurrency bounds parallel product resyncs in ForceSync
const DefaultForceSyncConcurrency = 4

// CampaignService handles campaign lifecycle operations and keeps member
// product prices consistent with every change.
type CampaignService struct {
	txScope          TransactionScope
	campaignRepo     promotion.CampaignRepository
	membershipRepo   promotion.MembershipRepository
	productRepo      catalog.ProductRepository
	syncer           *PriceSyncService
	memberships      *MembershipService
	publisher        shared.EventPublisher
	logger           *zap.Logger
	forceSyncWorkers int
}

// NewCampaignService creates a new CampaignService
func NewCampaignService(
	txScope TransactionScope,
	campaignRepo promotion.CampaignRepository,
	membershipRepo promotion.MembershipRepository,
	productRepo catalog.ProductRepository,
	syncer *PriceSyncService,
	memberships *MembershipService,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *CampaignService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignService{
		txScope:          txScope,
		campaignRepo:     campaignRepo,
		membershipRepo:   membershipRepo,
		productRepo:      productRepo,
		syncer:           syncer,
		memberships:      memberships,
		publisher:        publisher,
		logger:           logger,
		forceSyncWorkers: DefaultForceSyncConcurrency,
	}
}

// SetForceSyncConcurrency sets how many products ForceSync resyncs in parallel.
func (s *CampaignService) SetForceSyncConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.forceSyncWorkers = n
}

// List lists campaigns with status filter, search and pagination
func (s *CampaignService) List(ctx context.Context, req ListCampaignsRequest) ([]CampaignResponse, int64, error) {
	filter := promotion.CampaignFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: strings.ToLower(req.OrderDir),
			Search:   strings.TrimSpace(req.Search),
		}.Normalize(),
		At: s.syncer.Now(),
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}
	if req.Status != "" && req.Status != "all" {
		status := promotion.CampaignStatus(req.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("Unknown campaign status: " + req.Status)
		}
		filter.Status = status
	}

	campaigns, total, err := s.campaignRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	items := make([]CampaignResponse, len(campaigns))
	for i := range campaigns {
		items[i] = ToCampaignResponse(&campaigns[i], filter.At)
	}
	return items, total, nil
}

// GetByID returns a campaign with its member products and their variants
func (s *CampaignService) GetByID(ctx context.Context, id uuid.UUID) (*CampaignDetailResponse, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	memberships, err := s.membershipRepo.FindByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, len(memberships))
	for i, m := range memberships {
		productIDs[i] = m.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	detail := &CampaignDetailResponse{
		CampaignResponse: ToCampaignResponse(campaign, s.syncer.Now()),
		Products:         make([]CampaignProductResponse, 0, len(memberships)),
	}
	for _, m := range memberships {
		p, ok := byID[m.ProductID]
		if !ok {
			continue
		}
		detail.Products = append(detail.Products, ToCampaignProductResponse(p, m.Scope))
	}
	return detail, nil
}

// Create validates and stores a new campaign. A new campaign has no members,
// so no price changes.
func (s *CampaignService) Create(ctx context.Context, req CreateCampaignRequest) (*CampaignResponse, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	campaign, err := promotion.NewCampaign(promotion.CampaignFields{
		Name:            req.Name,
		Description:     req.Description,
		Discount:        ruleFromRequest(req.DiscountPercent, req.DiscountAmount, req.FixedPrice),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        isActive,
		TotalUsageLimit: req.TotalUsageLimit,
	}, s.syncer.Now())
	if err != nil {
		return nil, err
	}

	exists, err := s.campaignRepo.ExistsByNameKey(ctx, campaign.NameKey(), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists, "Campaign with this name already exists")
	}

	if err := s.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, err
	}
	s.publishAggregate(ctx, campaign)

	s.logger.Info("Campaign created",
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("name", campaign.Name),
		zap.String("discount_type", string(campaign.Discount.Kind())))

	resp := ToCampaignResponse(campaign, s.syncer.Now())
	return &resp, nil
}

// Update applies a partial update. When the discount, dates or active flag
// change, every member product is resynced in the same transaction.
func (s *CampaignService) Update(ctx context.Context, id uuid.UUID, req UpdateCampaignRequest) (*CampaignResponse, error) {
	patch := promotion.CampaignPatch{
		Name:            req.Name,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		FixedPrice:      req.FixedPrice,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        req.IsActive,
		TotalUsageLimit: req.TotalUsageLimit,
	}

	var (
		campaign *promotion.Campaign
		results  []*SyncResult
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		results = nil
		var err error
		campaign, err = repos.CampaignRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		pricingChanged, err := campaign.Apply(patch, s.syncer.Now())
		if err != nil {
			return err
		}
		if req.Name != nil {
			exists, err := repos.CampaignRepo().ExistsByNameKey(ctx, campaign.NameKey(), &campaign.ID)
			if err != nil {
				return err
			}
			if exists {
				return shared.NewDomainError(shared.CodeAlreadyExists, "Campaign with this name already exists")
			}
		}
		if err := repos.CampaignRepo().Save(ctx, campaign); err != nil {
			return err
		}
		if !pricingChanged {
			return nil
		}
		results, err = s.resyncMembers(ctx, repos, id, TriggerCampaignUpdate)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.syncer.Publish(ctx, results...)
	s.publishAggregate(ctx, campaign)

	s.logger.Info("Campaign updated",
		zap.String("campaign_id", id.String()),
		zap.Int("products_resynced", len(results)))

	resp := ToCampaignResponse(campaign, s.syncer.Now())
	return &resp, nil
}

// Delete removes a campaign and its memberships, then resyncs every former
// member so prices fall back to what the remaining campaigns allow.
func (s *CampaignService) Delete(ctx context.Context, id uuid.UUID) error {
	var (
		campaign *promotion.Campaign
		results  []*SyncResult
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		campaign, err = repos.CampaignRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		// Members must be captured before the rows go away.
		productIDs, err := repos.MembershipRepo().FindProductIDsByCampaigns(ctx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if err := repos.MembershipRepo().DeleteByCampaign(ctx, id); err != nil {
			return err
		}
		if err := repos.CampaignRepo().Delete(ctx, id); err != nil {
			return err
		}
		results = make([]*SyncResult, 0, len(productIDs))
		for _, productID := range productIDs {
			r, err := s.syncer.SyncInTx(ctx, repos, productID, TriggerCampaignDelete)
			if err != nil {
				return err
			}
			results = append(results, r)
		}
		return nil
	})
	if err != nil {
		return err
	}

	campaign.MarkDeleted(s.syncer.Now())
	s.syncer.Publish(ctx, results...)
	s.publishAggregate(ctx, campaign)

	s.logger.Info("Campaign deleted",
		zap.String("campaign_id", id.String()),
		zap.Int("products_resynced", len(results)))
	return nil
}

// AddProducts adds products (optionally narrowed to variants) to a campaign
func (s *CampaignService) AddProducts(ctx context.Context, id uuid.UUID, req MembershipBatchRequest) (*MembershipBatchResponse, error) {
	result, err := s.memberships.AddProducts(ctx, id, req.ToItems())
	if err != nil {
		return nil, err
	}
	resp := ToMembershipBatchResponse(result)
	return &resp, nil
}

// RemoveProducts removes products or variants from a campaign
func (s *CampaignService) RemoveProducts(ctx context.Context, id uuid.UUID, req MembershipBatchRequest) (*MembershipBatchResponse, error) {
	result, err := s.memberships.RemoveProducts(ctx, id, req.ToItems())
	if err != nil {
		return nil, err
	}
	resp := ToMembershipBatchResponse(result)
	return &resp, nil
}

// ForceSync resyncs every member product of a campaign, each in its own
// transaction. Failures are collected and never stop the other products.
func (s *CampaignService) ForceSync(ctx context.Context, id uuid.UUID) (*ForceSyncResponse, error) {
	if _, err := s.campaignRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	productIDs, err := s.membershipRepo.FindProductIDsByCampaigns(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}

	resp := &ForceSyncResponse{CampaignID: id, Total: len(productIDs)}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.forceSyncWorkers)
	for _, productID := range productIDs {
		g.Go(func() error {
			r, err := s.syncer.SyncProductPrice(ctx, productID, TriggerForceSync)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				resp.Failed++
				resp.Failures = append(resp.Failures, ForceSyncFailure{ProductID: productID, Error: err.Error()})
				s.logger.Error("Force sync failed for product",
					zap.String("campaign_id", id.String()),
					zap.String("product_id", productID.String()),
					zap.Error(err))
				return nil
			}
			resp.Succeeded++
			if r.Changed() {
				resp.Changed++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Force sync finished",
		zap.String("campaign_id", id.String()),
		zap.Int("total", resp.Total),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed))
	return resp, nil
}

// SyncProduct resyncs a single product on demand.
func (s *CampaignService) SyncProduct(ctx context.Context, productID uuid.UUID) (*SyncResultResponse, error) {
	r, err := s.syncer.SyncProductPrice(ctx, productID, TriggerManual)
	if err != nil {
		return nil, err
	}
	if r.Skipped {
		return nil, shared.NewNotFoundError("Product")
	}
	resp := ToSyncResultResponse(r)
	return &resp, nil
}

func (s *CampaignService) resyncMembers(ctx context.Context, repos TransactionalRepositories, campaignID uuid.UUID, trigger SyncTrigger) ([]*SyncResult, error) {
	productIDs, err := repos.MembershipRepo().FindProductIDsByCampaigns(ctx, []uuid.UUID{campaignID})
	if err != nil {
		return nil, fmt.Errorf("load members of campaign %s: %w", campaignID, err)
	}
	results := make([]*SyncResult, 0, len(productIDs))
	for _, productID := range productIDs {
		r, err := s.syncer.SyncInTx(ctx, repos, productID, trigger)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *CampaignService) publishAggregate(ctx context.Context, campaign *promotion.Campaign) {
	events := campaign.PullEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish campaign events",
			zap.String("campaign_id", campaign.ID.String()),
			zap.Error(err))
	}
}

func ruleFromRequest(percent, amount, fixed *decimal.Decimal) promotion.DiscountRule {
	return promotion.DiscountRule{
		Percent:    derefOrZero(percent),
		Amount:     derefOrZero(amount),
		FixedPrice: derefOrZero(fixed),
	}
}

func derefOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
