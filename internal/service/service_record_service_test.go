package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/validation"
)

func newServiceRecordFixture() (*ServiceRecordService, *mockHistoryRepo, *mockAuditRepo) {
	history := &mockHistoryRepo{}
	audit := &mockAuditRepo{}
	users := newMockUserStore(
		newUser(1, "admin", models.RoleAdmin),
		newUser(2, "tech", models.RoleTechSpecialist),
		newUser(3, "user", models.RoleUser),
	)
	equipment := newMockEquipmentRepo(equipmentItem(1, "Printer", "INV-1"))
	return NewServiceRecordService(history, equipment, users, audit, validation.New(), 10, zap.NewNop()), history, audit
}

func TestServiceRecordDateRules(t *testing.T) {
	tech := Actor{ID: 2, Role: models.RoleTechSpecialist}
	tests := []struct {
		name string
		req  models.ServiceRecordRequest
		ok   bool
	}{
		{"completed with date", models.ServiceRecordRequest{Status: models.ServiceStatusCompleted, ServiceDate: "2024-02-01"}, true},
		{"completed without date", models.ServiceRecordRequest{Status: models.ServiceStatusCompleted}, false},
		{"planned with planned date", models.ServiceRecordRequest{Status: models.ServiceStatusPlanned, PlannedDate: "2024-03-01"}, true},
		{"planned without planned date", models.ServiceRecordRequest{Status: models.ServiceStatusPlanned}, false},
		{"planned with service date", models.ServiceRecordRequest{Status: models.ServiceStatusPlanned, PlannedDate: "2024-03-01", ServiceDate: "2024-03-02"}, false},
		{"service before planned", models.ServiceRecordRequest{Status: models.ServiceStatusInProgress, PlannedDate: "2024-03-05", ServiceDate: "2024-03-01"}, false},
		{"same day", models.ServiceRecordRequest{Status: models.ServiceStatusCompleted, PlannedDate: "2024-03-05", ServiceDate: "2024-03-05"}, true},
		{"in progress no dates", models.ServiceRecordRequest{Status: models.ServiceStatusInProgress}, true},
		{"unknown status", models.ServiceRecordRequest{Status: "Done"}, false},
		{"malformed date", models.ServiceRecordRequest{Status: models.ServiceStatusCompleted, ServiceDate: "01/02/2024"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newServiceRecordFixture()
			tc.req.ServiceType = "Repair"
			tc.req.Description = "Replaced fuser"
			_, err := svc.Add(context.Background(), 1, tc.req, tech)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
		})
	}
}

func TestServiceRecordPerformer(t *testing.T) {
	svc, history, audit := newServiceRecordFixture()
	req := models.ServiceRecordRequest{ServiceType: "Cleaning", Description: "Dust", Status: models.ServiceStatusInProgress, PerformedByID: 2}

	record, err := svc.Add(context.Background(), 1, req, Actor{ID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.NotNil(t, record.PerformedByID)
	assert.Equal(t, int64(2), *record.PerformedByID)
	assert.Equal(t, "Lasttech First", *record.PerformedByName)

	req.PerformedByID = 3
	_, err = svc.Add(context.Background(), 1, req, Actor{ID: 1, Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	req.PerformedByID = 99
	_, err = svc.Add(context.Background(), 1, req, Actor{ID: 1, Role: models.RoleAdmin})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	assert.Len(t, history.created, 1)
	assert.Equal(t, []string{models.AuditActionServiceRecord}, audit.actions())
}

func TestServiceRecordExternalPerformer(t *testing.T) {
	req := models.ServiceRecordRequest{ServiceType: "Repair", Description: "Vendor visit", Status: models.ServiceStatusInProgress}
	for _, actor := range []Actor{
		{ID: 1, Role: models.RoleAdmin},
		{ID: 2, Role: models.RoleTechSpecialist},
	} {
		t.Run(string(actor.Role), func(t *testing.T) {
			svc, history, _ := newServiceRecordFixture()

			record, err := svc.Add(context.Background(), 1, req, actor)
			require.NoError(t, err)
			assert.Nil(t, record.PerformedByID)
			assert.Nil(t, record.PerformedByName)
			require.Len(t, history.created, 1)
			assert.Nil(t, history.created[0].PerformedByID)
		})
	}
}

func TestServiceRecordRequiresEquipment(t *testing.T) {
	svc, _, _ := newServiceRecordFixture()
	req := models.ServiceRecordRequest{ServiceType: "Cleaning", Description: "Dust", Status: models.ServiceStatusInProgress}
	_, err := svc.Add(context.Background(), 99, req, Actor{ID: 2, Role: models.RoleTechSpecialist})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	_, _, err = svc.List(context.Background(), 99, 1, 0)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestServiceRecordRequiresText(t *testing.T) {
	svc, _, _ := newServiceRecordFixture()
	_, err := svc.Add(context.Background(), 1, models.ServiceRecordRequest{ServiceType: "  ", Description: "x", Status: models.ServiceStatusInProgress}, Actor{ID: 2, Role: models.RoleTechSpecialist})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}
