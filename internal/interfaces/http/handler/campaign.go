package handler

import (
	"context"
	"net/http"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CampaignService is the campaign use-case surface the handler depends on.
// *apppromotion.CampaignService satisfies it.
type CampaignService interface {
	List(ctx context.Context, req apppromotion.ListCampaignsRequest) ([]apppromotion.CampaignResponse, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*apppromotion.CampaignDetailResponse, error)
	Create(ctx context.Context, req apppromotion.CreateCampaignRequest) (*apppromotion.CampaignResponse, error)
	Update(ctx context.Context, id uuid.UUID, req apppromotion.UpdateCampaignRequest) (*apppromotion.CampaignResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddProducts(ctx context.Context, id uuid.UUID, req apppromotion.MembershipBatchRequest) (*apppromotion.MembershipBatchResponse, error)
	RemoveProducts(ctx context.Context, id uuid.UUID, req apppromotion.MembershipBatchRequest) (*apppromotion.MembershipBatchResponse, error)
	ForceSync(ctx context.Context, id uuid.UUID) (*apppromotion.ForceSyncResponse, error)
}

// CampaignHandler handles campaign-related API endpoints
type CampaignHandler struct {
	campaignService CampaignService
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(campaignService CampaignService) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService}
}

// List godoc
// @ID           listCampaigns
// @Summary      List campaigns
// @Description  List campaigns filtered by derived status with search and pagination
// @Tags         campaigns
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        status query string false "Status filter" Enums(all, active, upcoming, expired, inactive)
// @Param        search query string false "Search in name and description"
// @Param        order_by query string false "Sort field" default(created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} APIResponse[[]apppromotion.CampaignResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /campaigns [get]
func (h *CampaignHandler) List(c *gin.Context) {
	var req apppromotion.ListCampaignsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items, total, err := h.campaignService.List(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	paging := shared.Filter{Page: req.Page, PageSize: req.PageSize}.Normalize()
	okPage(c, items, total, paging.Page, paging.PageSize)
}

// Get godoc
// @ID           getCampaign
// @Summary      Get campaign by ID
// @Description  Returns a campaign with its member products and their variants
// @Tags         campaigns
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      200 {object} APIResponse[apppromotion.CampaignDetailResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /campaigns/{id} [get]
func (h *CampaignHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "campaign")
	if !valid {
		return
	}

	detail, err := h.campaignService.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail)
}

// Create godoc
// @ID           createCampaign
// @Summary      Create a campaign
// @Description  Create a campaign with exactly one discount rule
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        request body apppromotion.CreateCampaignRequest true "Campaign"
// @Success      201 {object} APIResponse[apppromotion.CampaignResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /campaigns [post]
func (h *CampaignHandler) Create(c *gin.Context) {
	var req apppromotion.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	campaign, err := h.campaignService.Create(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, campaign)
}

// Update godoc
// @ID           updateCampaign
// @Summary      Update a campaign
// @Description  Partially update a campaign; member prices are resynchronized in the same transaction
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body apppromotion.UpdateCampaignRequest true "Changed fields"
// @Success      200 {object} APIResponse[apppromotion.CampaignResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /campaigns/{id} [put]
func (h *CampaignHandler) Update(c *gin.Context) {
	id, valid := pathID(c, "campaign")
	if !valid {
		return
	}

	var req apppromotion.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	campaign, err := h.campaignService.Update(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, campaign)
}

// Delete godoc
// @ID           deleteCampaign
// @Summary      Delete a campaign
// @Description  Delete a campaign and resynchronize its former member products
// @Tags         campaigns
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      204
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /campaigns/{id} [delete]
func (h *CampaignHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "campaign")
	if !valid {
		return
	}

	if err := h.campaignService.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddProducts godoc
// @ID           addCampaignProducts
// @Summary      Add products to a campaign
// @Description  Add or widen memberships atomically and resynchronize the affected products
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body apppromotion.MembershipBatchRequest true "Products"
// @Success      200 {object} APIResponse[apppromotion.MembershipBatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /campaigns/{id}/products [post]
func (h *CampaignHandler) AddProducts(c *gin.Context) {
	h.membershipBatch(c, h.campaignService.AddProducts)
}

// RemoveProducts godoc
// @ID           removeCampaignProducts
// @Summary      Remove products from a campaign
// @Description  Remove or narrow memberships atomically and resynchronize the affected products
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Param        request body apppromotion.MembershipBatchRequest true "Products"
// @Success      200 {object} APIResponse[apppromotion.MembershipBatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /campaigns/{id}/products [delete]
func (h *CampaignHandler) RemoveProducts(c *gin.Context) {
	h.membershipBatch(c, h.campaignService.RemoveProducts)
}

type membershipOp func(context.Context, uuid.UUID, apppromotion.MembershipBatchRequest) (*apppromotion.MembershipBatchResponse, error)

func (h *CampaignHandler) membershipBatch(c *gin.Context, op membershipOp) {
	id, valid := pathID(c, "campaign")
	if !valid {
		return
	}

	var req apppromotion.MembershipBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := op(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}

// ForceSync godoc
// @ID           forceSyncCampaign
// @Summary      Resynchronize a campaign's products
// @Description  Best-effort resync of every member product; per-product failures are reported, not fatal
// @Tags         campaigns
// @Produce      json
// @Param        id path string true "Campaign ID" format(uuid)
// @Success      200 {object} APIResponse[apppromotion.ForceSyncResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /campaigns/{id}/sync-price [post]
func (h *CampaignHandler) ForceSync(c *gin.Context) {
	id, valid := pathID(c, "campaign")
	if !valid {
		return
	}

	result, err := h.campaignService.ForceSync(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
