package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

func TestCategoryServiceLifecycle(t *testing.T) {
	repo := newMockCategoryRepo(models.Category{ID: 1, Name: "Printers"})
	cacheRepo := newMockCacheRepo()
	audit := &mockAuditRepo{}
	svc := NewCategoryService(repo, audit, NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true), validation.New(), zap.NewNop())
	ctx := context.Background()
	admin := Actor{ID: 1, Role: models.RoleAdmin}

	_, err := svc.Create(ctx, models.CategoryRequest{Name: " printers "}, admin)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	_, err = svc.Create(ctx, models.CategoryRequest{Name: "   "}, admin)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	created, err := svc.Create(ctx, models.CategoryRequest{Name: "Monitors", Description: "Displays"}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Monitors", created.Name)

	updated, err := svc.Update(ctx, created.ID, models.CategoryRequest{Name: "Screens"}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Screens", updated.Name)
	assert.Equal(t, []string{equipmentCachePattern}, cacheRepo.patterns)

	_, err = svc.Update(ctx, created.ID, models.CategoryRequest{Name: "Printers"}, admin)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(err))

	require.NoError(t, svc.Delete(ctx, created.ID, admin))
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(svc.Delete(ctx, created.ID, admin)))

	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	assert.Equal(t, []string{models.AuditActionCategoryCreate, models.AuditActionCategoryUpdate, models.AuditActionCategoryDelete}, audit.actions())
}
