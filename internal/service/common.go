package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

const dateLayout = "2006-01-02"

// Actor identifies the principal performing an operation.
type Actor struct {
	ID        int64
	Role      models.RoleName
	IP        string
	UserAgent string
}

// ActorFromClaims builds an Actor from verified token claims.
func ActorFromClaims(claims *models.JWTClaims, ip, userAgent string) Actor {
	if claims == nil {
		return Actor{IP: ip, UserAgent: userAgent}
	}
	return Actor{ID: claims.UserID, Role: claims.Role, IP: ip, UserAgent: userAgent}
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditTrail writes audit entries and only logs failures.
type auditTrail struct {
	repo   auditRecorder
	logger *zap.Logger
}

func (a auditTrail) record(ctx context.Context, actor Actor, action, resource string, resourceID int64, oldValues, newValues interface{}) {
	if a.repo == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    action,
		Resource:  resource,
		OldValues: marshalAudit(oldValues),
		NewValues: marshalAudit(newValues),
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.ID > 0 {
		id := actor.ID
		entry.UserID = &id
	}
	if resourceID > 0 {
		rid := strconv.FormatInt(resourceID, 10)
		entry.ResourceID = &rid
	}
	if err := a.repo.CreateAuditLog(ctx, entry); err != nil {
		a.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func marshalAudit(v interface{}) []byte {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func validationError(err error, message string) error {
	if details := validation.FormatValidationErrors(err); len(details) > 0 {
		message = message + ": " + strings.Join(details, "; ")
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func invalid(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func internal(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// lookupError maps sql.ErrNoRows to a not-found error and anything else to internal.
func lookupError(err error, notFound, failure string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return internal(err, failure)
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalid(field + " must be formatted as YYYY-MM-DD")
	}
	return &t, nil
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

func pagination(page, pageSize, defaultSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
