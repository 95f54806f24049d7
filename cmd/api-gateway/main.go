package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/office-inventory-api/api/swagger"
	"github.com/noah-isme/office-inventory-api/internal/handler"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	"github.com/noah-isme/office-inventory-api/internal/service"
	"github.com/noah-isme/office-inventory-api/pkg/cache"
	"github.com/noah-isme/office-inventory-api/pkg/config"
	"github.com/noah-isme/office-inventory-api/pkg/database"
	"github.com/noah-isme/office-inventory-api/pkg/jobs"
	"github.com/noah-isme/office-inventory-api/pkg/logger"
	"github.com/noah-isme/office-inventory-api/pkg/storage"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

// @title Office Inventory API
// @version 1.0.0
// @description Office equipment inventory, service history and visit reports
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("api-gateway: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	store, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	metrics := service.NewMetricsService()
	evaluator := permission.NewEvaluator()
	validate := validation.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	imageRepo := repository.NewImageRepository(db)
	historyRepo := repository.NewServiceRecordRepository(db)
	visitRepo := repository.NewVisitLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Equipment.CacheTTL, logr, cfg.Equipment.CacheEnabled && cacheRepo.Enabled())

	var queue *jobs.Queue
	var enqueuer interface{ Enqueue(jobs.Job) error }
	if cfg.Thumbnails.Enabled {
		queue = jobs.NewQueue("thumbnails", jobs.QueueConfig{
			Workers:    cfg.Thumbnails.Workers,
			MaxRetries: cfg.Thumbnails.Retries,
			Logger:     logr,
		})
		enqueuer = queue
	}

	imageSvc := service.NewImageService(imageRepo, equipmentRepo, store,
		storage.NewSignedURLSigner(cfg.Storage.SigningSecret, cfg.Storage.URLTTL),
		enqueuer, metrics, service.ImageConfig{
			MaxUploadBytes:    cfg.Storage.MaxUploadBytes,
			ThumbnailSize:     cfg.Thumbnails.Size,
			ThumbnailsEnabled: cfg.Thumbnails.Enabled,
			PublicPath:        cfg.APIPrefix + "/images",
		}, logr)
	if queue != nil {
		queue.Handle(service.ThumbnailJobType, imageSvc.HandleThumbnailJob)
	}

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "office-inventory-api",
	})
	userSvc := service.NewUserService(userRepo, auditRepo, evaluator, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, auditRepo, cacheSvc, validate, logr)
	equipmentSvc := service.NewEquipmentService(service.EquipmentDeps{
		Repo:       equipmentRepo,
		Categories: categoryRepo,
		Users:      userRepo,
		History:    historyRepo,
		Images:     imageSvc,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Audit:      auditRepo,
		Validator:  validate,
		Logger:     logr,
	}, service.EquipmentConfig{PageSize: cfg.Equipment.PageSize, HistoryPageSize: cfg.ServiceHistory.PageSize})
	historySvc := service.NewServiceRecordService(historyRepo, equipmentRepo, userRepo, auditRepo, validate, cfg.ServiceHistory.PageSize, logr)
	reportSvc := service.NewReportService(visitRepo, equipmentRepo, evaluator, logr)

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = cache.Health{Client: redisClient}
	}

	router := newRouter(cfg, logr, routeDeps{
		evaluator:      evaluator,
		tokens:         authSvc,
		metrics:        metrics,
		audit:          auditRepo,
		visits:         reportSvc,
		auth:           handler.NewAuthHandler(authSvc),
		users:          handler.NewUserHandler(userSvc),
		equipment:      handler.NewEquipmentHandler(equipmentSvc, categorySvc, evaluator, cfg.Equipment.PageSize, cfg.Storage.MaxUploadBytes),
		serviceRecords: handler.NewServiceRecordHandler(historySvc),
		categories:     handler.NewCategoryHandler(categorySvc),
		images:         handler.NewImageHandler(imageSvc),
		reports:        handler.NewReportHandler(reportSvc),
		ops:            handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if queue != nil {
		queue.Start(gctx)
	}
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if queue != nil {
			queue.Stop()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return err
	})
	return g.Wait()
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return storage.NewS3Storage(ctx, cfg.S3)
	case config.StorageDriverLocal, "":
		return storage.NewLocalStorage(cfg.LocalDir)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
