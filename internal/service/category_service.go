package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id int64) (*models.Category, error)
	NameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id int64) error
}

// CategoryService manages equipment categories.
type CategoryService struct {
	repo      categoryRepository
	audit     auditTrail
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs a CategoryService. Category writes invalidate
// cached equipment lists because those embed category names.
func NewCategoryService(repo categoryRepository, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &CategoryService{repo: repo, audit: auditTrail{repo: audit, logger: logger}, cache: cache, validator: validate, logger: logger}
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, internal(err, "failed to list categories")
	}
	return categories, nil
}

// Get returns a category by id.
func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "category not found", "failed to load category")
	}
	return category, nil
}

// Create adds a category with a unique name.
func (s *CategoryService) Create(ctx context.Context, req models.CategoryRequest, actor Actor) (*models.Category, error) {
	category, err := s.prepare(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, internal(err, "failed to create category")
	}
	s.audit.record(ctx, actor, models.AuditActionCategoryCreate, "category", category.ID, nil, category)
	return category, nil
}

// Update renames or re-describes a category.
func (s *CategoryService) Update(ctx context.Context, id int64, req models.CategoryRequest, actor Actor) (*models.Category, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	category, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}
	category.ID = id
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, lookupError(err, "category not found", "failed to update category")
	}
	s.cache.Invalidate(ctx, equipmentCachePattern)
	s.audit.record(ctx, actor, models.AuditActionCategoryUpdate, "category", id, existing, category)
	return category, nil
}

// Delete removes a category; its equipment becomes uncategorised.
func (s *CategoryService) Delete(ctx context.Context, id int64, actor Actor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "category not found", "failed to delete category")
	}
	s.cache.Invalidate(ctx, equipmentCachePattern)
	s.audit.record(ctx, actor, models.AuditActionCategoryDelete, "category", id, nil, nil)
	return nil
}

func (s *CategoryService) prepare(ctx context.Context, req models.CategoryRequest, excludeID int64) (*models.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid category payload")
	}
	exists, err := s.repo.NameExists(ctx, req.Name, excludeID)
	if err != nil {
		return nil, internal(err, "failed to check category name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "category name already exists")
	}
	return &models.Category{Name: req.Name, Description: req.Description}, nil
}
