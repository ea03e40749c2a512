package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apppromotion "github.com/erp/pricesync/internal/application/promotion"
	"github.com/erp/pricesync/internal/domain/shared"
	"github.com/erp/pricesync/internal/interfaces/http/dto"
	"github.com/erp/pricesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) List(ctx context.Context, req apppromotion.ListCampaignsRequest) ([]apppromotion.CampaignResponse, int64, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]apppromotion.CampaignResponse), args.Get(1).(int64), args.Error(2)
}

func (m *MockCampaignService) GetByID(ctx context.Context, id uuid.UUID) (*apppromotion.CampaignDetailResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppromotion.CampaignDetailResponse), args.Error(1)
}

func (m *MockCampaignService) Create(ctx context.Context, req apppromotion.CreateCampaignRequest) (*apppromotion.CampaignResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppromotion.CampaignResponse), args.Error(1)
}

func (m *MockCampaignService) Update(ctx context.Context, id uuid.UUID, req apppromotion.UpdateCampaignRequest) (*apppromotion.CampaignResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppromotion.CampaignResponse), args.Error(1)
}

func (m *MockCampaignService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCampaignService) AddProducts(ctx context.Context, id uuid.UUID, req apppromotion.MembershipBatchRequest) (*apppromotion.MembershipBatchResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppromotion.MembershipBatchResponse), args.Error(1)
}

func (m *MockCampaignService) RemoveProducts(ctx context.Context, id uuid.UUID, req apppromotion.MembershipBatchRequest) (*apppromotion.MembershipBatchResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppromotion.MembershipBatchResponse), args.Error(1)
}

func (m *MockCampaignService) ForceSync(ctx context.Context, id uuid.UUID) (*apppromotion.ForceSyncResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppromotion.ForceSyncResponse), args.Error(1)
}

func setupCampaignRouter(svc CampaignService) *gin.Engine {
	h := NewCampaignHandler(svc)
	r := gin.New()
	r.Use(middleware.RequestID())
	g := r.Group("/api/v1/campaigns")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/products", h.AddProducts)
	g.DELETE("/:id/products", h.RemoveProducts)
	g.POST("/:id/sync-price", h.ForceSync)
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCampaignHandler_List(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)

	items := []apppromotion.CampaignResponse{{ID: uuid.New(), Name: "Spring", Status: "active"}}
	svc.On("List", mock.Anything, apppromotion.ListCampaignsRequest{Page: 2, PageSize: 10, Status: "active"}).
		Return(items, int64(15), nil)

	w := doRequest(r, http.MethodGet, "/api/v1/campaigns?page=2&page_size=10&status=active", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(15), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	svc.AssertExpectations(t)
}

func TestCampaignHandler_List_DefaultPaging(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)
	svc.On("List", mock.Anything, apppromotion.ListCampaignsRequest{}).
		Return([]apppromotion.CampaignResponse{}, int64(0), nil)

	w := doRequest(r, http.MethodGet, "/api/v1/campaigns", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PageSize)
}

func TestCampaignHandler_List_InvalidStatus(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)

	w := doRequest(r, http.MethodGet, "/api/v1/campaigns?status=paused", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestCampaignHandler_Create(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(30 * 24 * time.Hour)

	t.Run("created", func(t *testing.T) {
		svc := new(MockCampaignService)
		r := setupCampaignRouter(svc)
		spring := &apppromotion.CampaignResponse{ID: uuid.New(), Name: "Spring", DiscountType: "percent"}
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req apppromotion.CreateCampaignRequest) bool {
			return req.Name == "Spring" && req.DiscountPercent != nil &&
				req.DiscountPercent.Equal(decimal.NewFromInt(15)) &&
				req.StartDate.Equal(start) && req.EndDate.Equal(end)
		})).Return(spring, nil)

		w := doRequest(r, http.MethodPost, "/api/v1/campaigns",
			`{"name":"Spring","discount_percent":"15","start_date":"2026-03-01T00:00:00Z","end_date":"2026-03-31T00:00:00Z"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("percent above 100 is rejected before the service", func(t *testing.T) {
		svc := new(MockCampaignService)
		r := setupCampaignRouter(svc)

		w := doRequest(r, http.MethodPost, "/api/v1/campaigns",
			`{"name":"Spring","discount_percent":"150","start_date":"2026-03-01T00:00:00Z","end_date":"2026-03-31T00:00:00Z"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "discount_percent", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("domain validation error", func(t *testing.T) {
		svc := new(MockCampaignService)
		r := setupCampaignRouter(svc)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(nil, shared.NewValidationError("Exactly one discount rule must be set"))

		w := doRequest(r, http.MethodPost, "/api/v1/campaigns",
			`{"name":"Spring","start_date":"2026-03-01T00:00:00Z","end_date":"2026-03-31T00:00:00Z"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Exactly one discount rule must be set", resp.Error.Message)
		assert.NotEmpty(t, resp.Error.RequestID)
	})
}

func TestCampaignHandler_Get(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)
	id := uuid.New()
	missing := uuid.New()

	svc.On("GetByID", mock.Anything, id).Return(&apppromotion.CampaignDetailResponse{
		CampaignResponse: apppromotion.CampaignResponse{ID: id, Name: "Spring"},
	}, nil)
	svc.On("GetByID", mock.Anything, missing).Return(nil, shared.NewNotFoundError("Campaign"))

	w := doRequest(r, http.MethodGet, "/api/v1/campaigns/"+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"name":"Spring"`)

	w = doRequest(r, http.MethodGet, "/api/v1/campaigns/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decode(t, w).Error.Code)

	w = doRequest(r, http.MethodGet, "/api/v1/campaigns/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)
}

func TestCampaignHandler_Update(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)
	id := uuid.New()

	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(req apppromotion.UpdateCampaignRequest) bool {
		return req.IsActive != nil && !*req.IsActive && req.Name == nil
	})).Return(nil, shared.ErrConcurrencyConflict).Once()

	w := doRequest(r, http.MethodPut, "/api/v1/campaigns/"+id.String(), `{"is_active":false}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeConcurrencyConflict, decode(t, w).Error.Code)
	svc.AssertExpectations(t)
}

func TestCampaignHandler_Delete(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)
	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(nil)

	w := doRequest(r, http.MethodDelete, "/api/v1/campaigns/"+id.String(), "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestCampaignHandler_Memberships(t *testing.T) {
	id := uuid.New()
	productID := uuid.New()
	variantID := uuid.New()
	body := `{"items":[{"product_id":"` + productID.String() + `","variant_ids":["` + variantID.String() + `"]}]}`
	want := apppromotion.MembershipBatchRequest{Items: []apppromotion.MembershipItemRequest{
		{ProductID: productID, VariantIDs: []uuid.UUID{variantID}},
	}}
	result := &apppromotion.MembershipBatchResponse{CampaignID: id, ProductIDs: []uuid.UUID{productID}}

	t.Run("add", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("AddProducts", mock.Anything, id, want).Return(result, nil)

		w := doRequest(setupCampaignRouter(svc), http.MethodPost, "/api/v1/campaigns/"+id.String()+"/products", body)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("remove", func(t *testing.T) {
		svc := new(MockCampaignService)
		svc.On("RemoveProducts", mock.Anything, id, want).Return(result, nil)

		w := doRequest(setupCampaignRouter(svc), http.MethodDelete, "/api/v1/campaigns/"+id.String()+"/products", body)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("empty batch", func(t *testing.T) {
		svc := new(MockCampaignService)

		w := doRequest(setupCampaignRouter(svc), http.MethodPost, "/api/v1/campaigns/"+id.String()+"/products", `{"items":[]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "AddProducts", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCampaignHandler_ForceSync(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)
	id := uuid.New()
	failed := uuid.New()
	svc.On("ForceSync", mock.Anything, id).Return(&apppromotion.ForceSyncResponse{
		CampaignID: id,
		Total:      3,
		Succeeded:  2,
		Changed:    1,
		Failed:     1,
		Failures:   []apppromotion.ForceSyncFailure{{ProductID: failed, Error: "lock timeout"}},
	}, nil)

	w := doRequest(r, http.MethodPost, "/api/v1/campaigns/"+id.String()+"/sync-price", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), failed.String())
}

func TestCampaignHandler_UnexpectedError(t *testing.T) {
	svc := new(MockCampaignService)
	r := setupCampaignRouter(svc)
	id := uuid.New()
	svc.On("ForceSync", mock.Anything, id).Return(nil, errors.New("connection reset"))

	w := doRequest(r, http.MethodPost, "/api/v1/campaigns/"+id.String()+"/sync-price", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "connection reset")
}
