package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/export"
)

func newReportFixture() (*ReportService, *mockVisitRepo) {
	name := "Petrov Petr"
	uid := int64(2)
	visits := &mockVisitRepo{
		pages: []models.PageStat{{Path: "/equipment", Visits: 10}, {Path: "/reports", Visits: 3}},
		users: []models.UserStat{{UserID: &uid, UserName: &name, Visits: 8}, {Visits: 5}},
	}
	cat := "Printers"
	item := equipmentItem(1, "Printer", "INV-1")
	item.CategoryName = &cat
	svc := NewReportService(visits, newMockEquipmentRepo(item, equipmentItem(2, "Scanner", "INV-2")), permission.NewEvaluator(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, visits
}

func TestReportServiceVisitsScope(t *testing.T) {
	svc, visits := newReportFixture()
	ctx := context.Background()

	_, _, err := svc.Visits(ctx, Actor{ID: 3, Role: models.RoleUser}, models.VisitFilter{})
	require.NoError(t, err)
	require.NotNil(t, visits.lastFilter.UserID)
	assert.Equal(t, int64(3), *visits.lastFilter.UserID)

	other := int64(2)
	_, _, err = svc.Visits(ctx, Actor{ID: 3, Role: models.RoleUser}, models.VisitFilter{UserID: &other})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	_, _, err = svc.Visits(ctx, Actor{ID: 1, Role: models.RoleAdmin}, models.VisitFilter{})
	require.NoError(t, err)
	assert.Nil(t, visits.lastFilter.UserID)

	_, _, err = svc.Visits(ctx, Actor{ID: 4, Role: models.RoleGuest}, models.VisitFilter{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))
}

func TestReportServiceExportCSV(t *testing.T) {
	svc, _ := newReportFixture()

	file, err := svc.Export(context.Background(), ReportUsers, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "users_report_20240601.csv", file.FileName)
	body := string(file.Data)
	assert.Contains(t, body, "Petrov Petr,8")
	assert.Contains(t, body, "Anonymous,5")

	file, err = svc.Export(context.Background(), ReportEquipment, export.FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "INV-1,Printer,Printers,InOperation,2023-01-01,10.00"))
}

func TestReportServiceExportPDF(t *testing.T) {
	svc, _ := newReportFixture()
	file, err := svc.Export(context.Background(), ReportPages, export.FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestReportServiceExportUnknown(t *testing.T) {
	svc, _ := newReportFixture()
	_, err := svc.Export(context.Background(), "salaries", export.FormatCSV)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}
