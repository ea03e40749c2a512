package router

import (
	"net/http"

	"github.com/erp/pricesync/internal/infrastructure/config"
	"github.com/erp/pricesync/internal/infrastructure/logger"
	"github.com/erp/pricesync/internal/interfaces/http/handler"
	"github.com/erp/pricesync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// probePaths are excluded from tracing and access logs.
var probePaths = []string{"/health", "/api/v1/ping"}

// Handlers bundles the endpoint handlers mounted by NewEngine.
type Handlers struct {
	Health   *handler.HealthHandler
	Campaign *handler.CampaignHandler
	Product  *handler.ProductHandler
}

// NewEngine assembles the gin engine: global middleware, probes, swagger and
// the versioned price-sync API. Mutating routes go through admin.
func NewEngine(cfg *config.Config, log *zap.Logger, h Handlers, admin gin.HandlerFunc) (*gin.Engine, error) {
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	middleware.SetupValidator()

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, probePaths...))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.GinMiddleware(log, probePaths...))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	engine.GET("/health", h.Health.Health)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(cfg.Swagger.Enabled, cfg.Swagger.AllowedIPs),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine, WithAPIVersion("v1"))
	RegisterPriceSyncRoutes(r, h, admin)
	r.Setup()

	return engine, nil
}

// RegisterPriceSyncRoutes declares the campaign, product and ping routes.
func RegisterPriceSyncRoutes(r *Router, h Handlers, admin gin.HandlerFunc) {
	campaigns := NewResourceGroup("campaigns", "/campaigns").Guard(admin).
		Read("", h.Campaign.List).
		Read("/:id", h.Campaign.Get).
		Write(http.MethodPost, "", h.Campaign.Create).
		Write(http.MethodPut, "/:id", h.Campaign.Update).
		Write(http.MethodDelete, "/:id", h.Campaign.Delete).
		Write(http.MethodPost, "/:id/products", h.Campaign.AddProducts).
		Write(http.MethodDelete, "/:id/products", h.Campaign.RemoveProducts).
		Write(http.MethodPost, "/:id/sync-price", h.Campaign.ForceSync)

	products := NewResourceGroup("products", "/products").Guard(admin).
		Write(http.MethodPost, "/:id/sync-price", h.Product.SyncPrice)

	system := NewResourceGroup("system", "").
		Read("/ping", h.Health.Ping)

	r.Register(campaigns, products, system)
}
