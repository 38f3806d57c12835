package server

import (
	"context"

	"digistore/internal/config"
	"digistore/internal/handler"
	"digistore/internal/infra/cache"
	infraRepo "digistore/internal/infra/repository"
	"digistore/internal/infra/session"
	"digistore/internal/infra/storage"
	"digistore/internal/metrics"
	"digistore/internal/middleware"
	"digistore/internal/usecase"
	"digistore/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 外部とつながる部品。Redis は nil ならキャッシュ無効・cookieだけのゲストセッション
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Disk     storage.Disk
	Gateway  usecase.PaymentGateway
	Verifier usecase.SignatureVerifier
}

func registerRoutes(e *echo.Echo, cfg config.Config, d Deps, log *zap.Logger) error {
	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(d.DB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(d.DB)
	auditRepo := infraRepo.NewAuditLogGormRepository(d.DB)
	productRepo := infraRepo.NewProductGormRepository(d.DB)
	categoryRepo := infraRepo.NewCategoryGormRepository(d.DB)
	cartRepo := infraRepo.NewCartItemGormRepository(d.DB)
	orderRepo := infraRepo.NewOrderGormRepository(d.DB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(d.DB)
	viewedRepo := infraRepo.NewRecentlyViewedGormRepository(d.DB)
	txm := infraRepo.NewTxManagerGorm(d.DB)

	var catalogCache usecase.CatalogCache = cache.Noop{}
	var guests middleware.GuestStore = session.NewCookieGuestStore(cfg.GuestTTL)
	if d.Redis != nil {
		catalogCache = cache.NewRedisCache(d.Redis, cfg.CatalogTTL)
		guests = session.NewRedisGuestStore(d.Redis, cfg.GuestTTL)
	}

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txm, cartRepo, productRepo, log.Named("cart"))
	catalogUC := usecase.NewCatalogUsecase(productRepo, categoryRepo, viewedRepo, catalogCache, log.Named("catalog"))
	orderUC := usecase.NewOrderUsecase(txm, d.Gateway, cfg.Currency, cfg.StoreName, log.Named("order"))
	paymentUC := usecase.NewPaymentUsecase(txm, d.Verifier, log.Named("payment"))
	downloadUC := usecase.NewDownloadUsecase(productRepo, orderRepo, orderItemRepo, d.Disk, log.Named("download"))
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, auditRepo, log.Named("admin"))
	adminProductUC := usecase.NewAdminProductUsecase(productRepo, categoryRepo, auditRepo, d.Disk, catalogCache, log.Named("admin"))
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, auditRepo, validator.NewAuthValidator(userRepo), cartUC, log.Named("auth"))

	//Handler生成とルート登録
	handler.NewCatalogHandler(catalogUC, cfg.SiteURL).RegisterRoutes(e, cfg, userRepo)
	handler.NewCartHandler(cartUC, orderUC).RegisterRoutes(e, cfg, userRepo, guests, log)
	handler.NewOrderHandler(orderUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewPaymentHandler(paymentUC).RegisterRoutes(e)
	handler.NewDownloadHandler(downloadUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAuthHandler(authUC, cfg.CookieSecure).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminOrderHandler(adminOrderUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminProductHandler(adminProductUC).RegisterRoutes(e, cfg, userRepo)
	handler.NewAdminUserHandler(authUC).RegisterRoutes(e, cfg, userRepo)

	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	checks := map[string]handler.Pinger{"db": sqlDB.PingContext}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	handler.NewHealthHandler(checks).RegisterRoutes(e)

	e.GET("/metrics", metrics.Handler())
	return nil
}
