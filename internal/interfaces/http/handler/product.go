package handler

import (
	"context"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductSyncer recomputes one product's effective prices.
type ProductSyncer interface {
	SyncProduct(ctx context.Context, productID uuid.UUID) (*apppromotion.SyncResultResponse, error)
}

// ProductHandler handles product price endpoints
type ProductHandler struct {
	syncer ProductSyncer
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(syncer ProductSyncer) *ProductHandler {
	return &ProductHandler{syncer: syncer}
}

// SyncPrice godoc
// @ID           syncProductPrice
// @Summary      Resynchronize a product's prices
// @Description  Recompute the product's effective price and variant sale prices from its active campaigns
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[apppromotion.SyncResultResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id}/sync-price [post]
func (h *ProductHandler) SyncPrice(c *gin.Context) {
	id, valid := pathID(c, "product")
	if !valid {
		return
	}

	result, err := h.syncer.SyncProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
