package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/handler"
	"github.com/noah-isme/office-inventory-api/internal/middleware"
	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	"github.com/noah-isme/office-inventory-api/internal/service"
	"github.com/noah-isme/office-inventory-api/pkg/config"
	"github.com/noah-isme/office-inventory-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/office-inventory-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/office-inventory-api/pkg/middleware/requestid"
)

type routeDeps struct {
	evaluator *permission.Evaluator
	tokens    middleware.TokenValidator
	metrics   *service.MetricsService
	audit     middleware.AuditWriter
	visits    middleware.VisitRecorder

	auth           *handler.AuthHandler
	users          *handler.UserHandler
	equipment      *handler.EquipmentHandler
	serviceRecords *handler.ServiceRecordHandler
	categories     *handler.CategoryHandler
	images         *handler.ImageHandler
	reports        *handler.ReportHandler
	ops            *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	if cfg.Features.Metrics {
		r.Use(middleware.Metrics(d.metrics))
		r.GET("/metrics", d.ops.Prometheus)
	}

	r.GET("/health", d.ops.Health)
	if cfg.Features.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Features.VisitLog {
		api.Use(middleware.VisitLogger(d.visits, logr, cfg.APIPrefix+"/images/", cfg.APIPrefix+"/auth/", cfg.APIPrefix+"/metrics"))
	}
	api.POST("/auth/login", d.auth.Login)
	api.POST("/auth/refresh", d.auth.Refresh)
	api.GET("/images/:id", d.images.Serve)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.tokens))
	can := func(action permission.Action) gin.HandlerFunc {
		return middleware.RequirePermission(d.evaluator, action)
	}

	secured.POST("/auth/logout", d.auth.Logout)
	secured.POST("/auth/change-password", d.auth.ChangePassword)
	secured.GET("/auth/me", d.auth.Me)

	equipment := secured.Group("/equipment")
	equipment.GET("", can(permission.ViewEquipmentList), d.equipment.List)
	equipment.GET("/filters", can(permission.ViewEquipmentList), d.equipment.Filters)
	equipment.GET("/responsible-candidates", can(permission.CreateEquipment), d.equipment.ResponsibleCandidates)
	equipment.POST("", can(permission.CreateEquipment), d.equipment.Create)
	equipment.GET("/:id", can(permission.ViewEquipmentDetail), d.equipment.Get)
	equipment.PUT("/:id", can(permission.EditEquipment), d.equipment.Update)
	equipment.DELETE("/:id", can(permission.DeleteEquipment), d.equipment.Delete)
	equipment.GET("/:id/service-records", can(permission.ViewServiceHistory), d.serviceRecords.List)
	equipment.POST("/:id/service-records", can(permission.AddServiceRecord), d.serviceRecords.Add)

	categories := secured.Group("/categories")
	categories.GET("", can(permission.ViewEquipmentList), d.categories.List)
	categories.GET("/:id", can(permission.ViewEquipmentList), d.categories.Get)
	categories.POST("", can(permission.ManageCategories), d.categories.Create)
	categories.PUT("/:id", can(permission.ManageCategories), d.categories.Update)
	categories.DELETE("/:id", can(permission.ManageCategories), d.categories.Delete)

	secured.GET("/roles", can(permission.ManageUsers), d.users.Roles)
	users := secured.Group("/users")
	users.GET("", can(permission.ManageUsers), d.users.List)
	users.POST("", can(permission.ManageUsers), d.users.Create)
	users.GET("/:id", can(permission.ManageUsers), d.users.Get)
	users.PUT("/:id", can(permission.ManageUsers), d.users.Update)
	users.DELETE("/:id", can(permission.ManageUsers), d.users.Delete)
	users.GET("/:id/profile", middleware.RequireSelfOrPermission(d.evaluator, permission.ViewProfile, "id"), d.users.GetProfile)
	users.PUT("/:id/profile", middleware.RequireSelfOrPermission(d.evaluator, permission.EditProfile, "id"), d.users.UpdateProfile)

	reports := secured.Group("/reports")
	reports.GET("/visits", d.reports.Visits)
	reports.GET("/pages", can(permission.ViewReports), d.reports.PageStats)
	reports.GET("/users", can(permission.ViewReports), d.reports.UserStats)
	reports.GET("/:kind/export", can(permission.ExportReports),
		middleware.Audit(d.audit, logr, models.AuditActionReportExport, "report"), d.reports.Export)

	if cfg.Features.Metrics {
		secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin), d.ops.Summary)
	}
	return r
}
