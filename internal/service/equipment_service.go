package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/query"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

const (
	equipmentCacheNamespace = "equipment:list"
	equipmentCachePattern   = equipmentCacheNamespace + ":*"
)

type equipmentRepository interface {
	List(ctx context.Context, plan query.Plan, page repository.Page) ([]models.EquipmentDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.EquipmentDetail, error)
	InventoryNumberExists(ctx context.Context, number string, excludeID int64) (bool, error)
	Create(ctx context.Context, item *models.Equipment) error
	Update(ctx context.Context, item *models.Equipment) error
	Delete(ctx context.Context, id int64) error
}

type categoryFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Category, error)
}

type responsibleDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListByRoles(ctx context.Context, roles []models.RoleName) ([]models.ResponsibleCandidate, error)
}

type serviceHistoryRepository interface {
	ListByEquipment(ctx context.Context, equipmentID int64, page repository.Page) ([]models.ServiceRecord, int, error)
}

type equipmentImages interface {
	Save(ctx context.Context, upload models.ImageUpload) (*models.Image, error)
	DeleteIfUnused(ctx context.Context, id string, excludeEquipmentID int64) error
	SignedURL(id, variant string) (string, error)
}

// EquipmentConfig holds list and history page sizes.
type EquipmentConfig struct {
	PageSize        int
	HistoryPageSize int
}

// EquipmentList is one page of equipment.
type EquipmentList struct {
	Items      []models.EquipmentDetail `json:"items"`
	Pagination *models.Pagination       `json:"pagination"`
}

// EquipmentService implements the equipment catalogue.
type EquipmentService struct {
	repo       equipmentRepository
	categories categoryFinder
	users      responsibleDirectory
	history    serviceHistoryRepository
	images     equipmentImages
	cache      *CacheService
	metrics    *MetricsService
	audit      auditTrail
	validator  *validator.Validate
	config     EquipmentConfig
	logger     *zap.Logger
}

// EquipmentDeps groups the collaborators of EquipmentService.
type EquipmentDeps struct {
	Repo       equipmentRepository
	Categories categoryFinder
	Users      responsibleDirectory
	History    serviceHistoryRepository
	Images     equipmentImages
	Cache      *CacheService
	Metrics    *MetricsService
	Audit      auditRecorder
	Validator  *validator.Validate
	Logger     *zap.Logger
}

// NewEquipmentService constructs an EquipmentService.
func NewEquipmentService(deps EquipmentDeps, config EquipmentConfig) *EquipmentService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if config.PageSize <= 0 {
		config.PageSize = 10
	}
	if config.HistoryPageSize <= 0 {
		config.HistoryPageSize = 10
	}
	return &EquipmentService{
		repo:       deps.Repo,
		categories: deps.Categories,
		users:      deps.Users,
		history:    deps.History,
		images:     deps.Images,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		audit:      auditTrail{repo: deps.Audit, logger: deps.Logger},
		validator:  deps.Validator,
		config:     config,
		logger:     deps.Logger,
	}
}

// List builds a plan from criteria and sort and returns the requested page.
func (s *EquipmentService) List(ctx context.Context, criteria query.Criteria, sort query.Sort, page, pageSize int) (*EquipmentList, error) {
	plan := query.Build(criteria, sort)
	if pageSize <= 0 {
		pageSize = s.config.PageSize
	}
	p := repository.Page{Number: page, Size: pageSize}
	key := Key(equipmentCacheNamespace, struct {
		Plan query.Plan
		Page repository.Page
	}{plan, p})

	list, err := Cached(ctx, s.cache, key, func() (*EquipmentList, error) {
		items, total, err := s.repo.List(ctx, plan, p)
		if err != nil {
			return nil, internal(err, "failed to list equipment")
		}
		if items == nil {
			items = []models.EquipmentDetail{}
		}
		return &EquipmentList{Items: items, Pagination: pagination(page, pageSize, s.config.PageSize, total)}, nil
	})
	if err != nil {
		return nil, err
	}
	for i := range list.Items {
		s.attachImageURL(&list.Items[i])
	}
	return list, nil
}

// Get returns one equipment item.
func (s *EquipmentService) Get(ctx context.Context, id int64) (*models.EquipmentDetail, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "equipment not found", "failed to load equipment")
	}
	s.attachImageURL(item)
	return item, nil
}

// GetWithHistory loads an item and one page of its service history concurrently.
func (s *EquipmentService) GetWithHistory(ctx context.Context, id int64, historyPage int) (*models.EquipmentWithHistory, error) {
	var (
		item    *models.EquipmentDetail
		records []models.ServiceRecord
		total   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		item, err = s.repo.FindByID(gctx, id)
		if err != nil {
			return lookupError(err, "equipment not found", "failed to load equipment")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, total, err = s.history.ListByEquipment(gctx, id, repository.Page{Number: historyPage, Size: s.config.HistoryPageSize})
		if err != nil {
			return internal(err, "failed to load service history")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.attachImageURL(item)
	if records == nil {
		records = []models.ServiceRecord{}
	}
	return &models.EquipmentWithHistory{
		EquipmentDetail: item,
		ServiceRecords:  records,
		HistoryPage:     pagination(historyPage, s.config.HistoryPageSize, s.config.HistoryPageSize, total),
	}, nil
}

// ResponsibleCandidates lists users who may be made responsible for equipment.
func (s *EquipmentService) ResponsibleCandidates(ctx context.Context) ([]models.ResponsibleCandidate, error) {
	candidates, err := s.users.ListByRoles(ctx, eligibleTechnicianRoles)
	if err != nil {
		return nil, internal(err, "failed to list responsible users")
	}
	if candidates == nil {
		candidates = []models.ResponsibleCandidate{}
	}
	return candidates, nil
}

// Create adds an equipment item, storing upload as its picture when present.
func (s *EquipmentService) Create(ctx context.Context, req models.EquipmentRequest, upload *models.ImageUpload, actor Actor) (*models.EquipmentDetail, error) {
	item, err := s.prepare(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	if upload != nil {
		img, err := s.images.Save(ctx, *upload)
		if err != nil {
			return nil, err
		}
		item.ImageID = &img.ID
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.releaseImage(ctx, item.ImageID, 0)
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "inventory number already exists")
		}
		return nil, internal(err, "failed to create equipment")
	}

	s.afterWrite(ctx, actor, models.AuditActionEquipmentCreate, item.ID, nil, item)
	return s.Get(ctx, item.ID)
}

// Update replaces the mutable fields of an item. A replaced or removed picture
// is deleted once nothing else references it.
func (s *EquipmentService) Update(ctx context.Context, id int64, req models.EquipmentRequest, upload *models.ImageUpload, actor Actor) (*models.EquipmentDetail, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "equipment not found", "failed to load equipment")
	}
	item, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}
	item.ID = id
	item.CreatedAt = existing.CreatedAt
	item.ImageID = existing.ImageID

	switch {
	case upload != nil:
		img, err := s.images.Save(ctx, *upload)
		if err != nil {
			return nil, err
		}
		item.ImageID = &img.ID
	case req.RemoveImage:
		item.ImageID = nil
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if !sameImage(item.ImageID, existing.ImageID) {
			s.releaseImage(ctx, item.ImageID, 0)
		}
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "inventory number already exists")
		}
		return nil, lookupError(err, "equipment not found", "failed to update equipment")
	}
	if !sameImage(item.ImageID, existing.ImageID) {
		s.releaseImage(ctx, existing.ImageID, id)
	}

	s.afterWrite(ctx, actor, models.AuditActionEquipmentUpdate, id, existing.Equipment, item)
	return s.Get(ctx, id)
}

// Delete removes an item with its service history.
func (s *EquipmentService) Delete(ctx context.Context, id int64, actor Actor) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, "equipment not found", "failed to load equipment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "equipment not found", "failed to delete equipment")
	}
	s.releaseImage(ctx, existing.ImageID, id)
	s.afterWrite(ctx, actor, models.AuditActionEquipmentDelete, id, existing.Equipment, nil)
	return nil
}

// prepare validates req and resolves its references into an Equipment value.
func (s *EquipmentService) prepare(ctx context.Context, req models.EquipmentRequest, excludeID int64) (*models.Equipment, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.InventoryNumber = strings.TrimSpace(req.InventoryNumber)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid equipment payload")
	}
	purchased, err := time.Parse(dateLayout, req.PurchaseDate)
	if err != nil {
		return nil, invalid("purchase_date must be formatted as YYYY-MM-DD")
	}

	exists, err := s.repo.InventoryNumberExists(ctx, req.InventoryNumber, excludeID)
	if err != nil {
		return nil, internal(err, "failed to check inventory number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "inventory number already exists")
	}

	item := &models.Equipment{
		Name:              req.Name,
		InventoryNumber:   req.InventoryNumber,
		PurchaseDate:      purchased,
		Cost:              req.Cost,
		Status:            req.Status,
		Notes:             req.Notes,
		CategoryID:        optionalID(req.CategoryID),
		ResponsibleUserID: optionalID(req.ResponsibleUserID),
	}

	if item.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *item.CategoryID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, invalid("category does not exist")
			}
			return nil, internal(err, "failed to load category")
		}
	}
	if item.ResponsibleUserID != nil {
		user, err := s.users.FindByID(ctx, *item.ResponsibleUserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, invalid("responsible user does not exist")
			}
			return nil, internal(err, "failed to load responsible user")
		}
		if !isEligibleTechnician(user.RoleValue()) {
			return nil, invalid("responsible user must be an administrator or technical specialist")
		}
	}
	return item, nil
}

func (s *EquipmentService) afterWrite(ctx context.Context, actor Actor, action string, id int64, before, after interface{}) {
	s.cache.Invalidate(ctx, equipmentCachePattern)
	s.metrics.RecordEquipmentWrite(action)
	s.audit.record(ctx, actor, action, "equipment", id, before, after)
}

func (s *EquipmentService) releaseImage(ctx context.Context, imageID *string, excludeEquipmentID int64) {
	if imageID == nil || s.images == nil {
		return
	}
	if err := s.images.DeleteIfUnused(ctx, *imageID, excludeEquipmentID); err != nil {
		s.logger.Warn("failed to release image", zap.String("image_id", *imageID), zap.Error(err))
	}
}

func (s *EquipmentService) attachImageURL(item *models.EquipmentDetail) {
	item.ImageURL = ""
	if item.ImageID == nil || s.images == nil {
		return
	}
	signed, err := s.images.SignedURL(*item.ImageID, VariantOriginal)
	if err != nil {
		s.logger.Warn("failed to sign image url", zap.String("image_id", *item.ImageID), zap.Error(err))
		return
	}
	item.ImageURL = signed
}

func sameImage(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
