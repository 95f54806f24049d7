package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

// eligibleTechnicianRoles may perform service work and be responsible for equipment.
var eligibleTechnicianRoles = []models.RoleName{models.RoleAdmin, models.RoleTechSpecialist}

type serviceRecordRepository interface {
	Create(ctx context.Context, record *models.ServiceRecord) error
	ListByEquipment(ctx context.Context, equipmentID int64, page repository.Page) ([]models.ServiceRecord, int, error)
}

type equipmentFinder interface {
	FindByID(ctx context.Context, id int64) (*models.EquipmentDetail, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// ServiceRecordService manages equipment service history.
type ServiceRecordService struct {
	repo      serviceRecordRepository
	equipment equipmentFinder
	users     userFinder
	audit     auditTrail
	validator *validator.Validate
	pageSize  int
	logger    *zap.Logger
}

// NewServiceRecordService constructs a ServiceRecordService.
func NewServiceRecordService(repo serviceRecordRepository, equipment equipmentFinder, users userFinder, audit auditRecorder, validate *validator.Validate, pageSize int, logger *zap.Logger) *ServiceRecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &ServiceRecordService{repo: repo, equipment: equipment, users: users, audit: auditTrail{repo: audit, logger: logger}, validator: validate, pageSize: pageSize, logger: logger}
}

// Add appends a service record to equipmentID. A zero performer records
// external work and stores no performer.
func (s *ServiceRecordService) Add(ctx context.Context, equipmentID int64, req models.ServiceRecordRequest, actor Actor) (*models.ServiceRecord, error) {
	req.ServiceType = strings.TrimSpace(req.ServiceType)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid service record payload")
	}

	if _, err := s.equipment.FindByID(ctx, equipmentID); err != nil {
		return nil, lookupError(err, "equipment not found", "failed to load equipment")
	}

	planned, err := parseDate("planned_date", req.PlannedDate)
	if err != nil {
		return nil, err
	}
	performed, err := parseDate("service_date", req.ServiceDate)
	if err != nil {
		return nil, err
	}
	if err := checkServiceDates(req.Status, planned, performed); err != nil {
		return nil, err
	}

	performerID, performerName, err := s.resolvePerformer(ctx, req.PerformedByID)
	if err != nil {
		return nil, err
	}

	record := &models.ServiceRecord{
		EquipmentID:     equipmentID,
		ServiceType:     req.ServiceType,
		Description:     req.Description,
		Status:          req.Status,
		PlannedDate:     planned,
		ServiceDate:     performed,
		PerformedByID:   performerID,
		PerformedByName: performerName,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, internal(err, "failed to create service record")
	}

	s.audit.record(ctx, actor, models.AuditActionServiceRecord, "equipment", equipmentID, nil, record)
	return record, nil
}

// List returns one page of service history for equipmentID.
func (s *ServiceRecordService) List(ctx context.Context, equipmentID int64, page, pageSize int) ([]models.ServiceRecord, *models.Pagination, error) {
	if _, err := s.equipment.FindByID(ctx, equipmentID); err != nil {
		return nil, nil, lookupError(err, "equipment not found", "failed to load equipment")
	}
	return s.listPage(ctx, equipmentID, page, pageSize)
}

func (s *ServiceRecordService) listPage(ctx context.Context, equipmentID int64, page, pageSize int) ([]models.ServiceRecord, *models.Pagination, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	records, total, err := s.repo.ListByEquipment(ctx, equipmentID, repository.Page{Number: page, Size: pageSize})
	if err != nil {
		return nil, nil, internal(err, "failed to list service records")
	}
	return records, pagination(page, pageSize, s.pageSize, total), nil
}

// resolvePerformer maps 0 to no performer, meaning the work was done externally.
func (s *ServiceRecordService) resolvePerformer(ctx context.Context, id int64) (*int64, *string, error) {
	if id == 0 {
		return nil, nil, nil
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, nil, lookupError(err, "performer not found", "failed to load performer")
	}
	if !isEligibleTechnician(user.RoleValue()) {
		return nil, nil, invalid("performer must be an administrator or technical specialist")
	}
	name := user.FullName()
	return &user.ID, &name, nil
}

func checkServiceDates(status models.ServiceStatus, planned, performed *time.Time) error {
	switch status {
	case models.ServiceStatusCompleted:
		if performed == nil {
			return invalid("service_date is required for completed work")
		}
	case models.ServiceStatusPlanned:
		if planned == nil {
			return invalid("planned_date is required for planned work")
		}
		if performed != nil {
			return invalid("planned work cannot have a service_date; use InProgress or Completed")
		}
	}
	if planned != nil && performed != nil && performed.Before(*planned) {
		return invalid("service_date cannot be earlier than planned_date")
	}
	return nil
}

func isEligibleTechnician(role models.RoleName) bool {
	for _, r := range eligibleTechnicianRoles {
		if r == role {
			return true
		}
	}
	return false
}
