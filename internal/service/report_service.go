package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	"github.com/noah-isme/office-inventory-api/internal/query"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/export"
)

// exportBatch is the page size used to walk equipment for exports.
const exportBatch = 100

type visitRepository interface {
	Create(ctx context.Context, path string, userID *int64) error
	List(ctx context.Context, filter models.VisitFilter) ([]models.VisitLog, int, error)
	PageStats(ctx context.Context) ([]models.PageStat, error)
	UserStats(ctx context.Context) ([]models.UserStat, error)
}

type equipmentLister interface {
	List(ctx context.Context, plan query.Plan, page repository.Page) ([]models.EquipmentDetail, int, error)
}

// ReportKind selects an exportable report.
type ReportKind string

const (
	ReportPages     ReportKind = "pages"
	ReportUsers     ReportKind = "users"
	ReportEquipment ReportKind = "equipment"
)

// ExportFile is a rendered report ready for download.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ReportService serves visit logs, visit statistics and file exports.
type ReportService struct {
	visits    visitRepository
	equipment equipmentLister
	evaluator *permission.Evaluator
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(visits visitRepository, equipment equipmentLister, evaluator *permission.Evaluator, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if evaluator == nil {
		evaluator = permission.NewEvaluator()
	}
	return &ReportService{visits: visits, equipment: equipment, evaluator: evaluator, logger: logger, now: time.Now}
}

// RecordVisit stores a page visit. userID is nil for anonymous requests.
func (s *ReportService) RecordVisit(ctx context.Context, path string, userID *int64) error {
	return s.visits.Create(ctx, path, userID)
}

// Visits lists page visits. Roles without a blanket view_logs grant only see
// their own visits; an unset user filter is narrowed to the actor.
func (s *ReportService) Visits(ctx context.Context, actor Actor, filter models.VisitFilter) ([]models.VisitLog, *models.Pagination, error) {
	if !s.evaluator.Can(actor.Role, permission.ViewLogs) {
		target := actor.ID
		if filter.UserID != nil {
			target = *filter.UserID
		}
		if !s.evaluator.CanOnTarget(actor.Role, permission.ViewLogs, actor.ID, target) {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view visit logs of other users")
		}
		filter.UserID = &target
	}

	logs, total, err := s.visits.List(ctx, filter)
	if err != nil {
		return nil, nil, internal(err, "failed to list visit logs")
	}
	if logs == nil {
		logs = []models.VisitLog{}
	}
	return logs, pagination(filter.Page, filter.PageSize, 10, total), nil
}

// PageStats aggregates visits per path.
func (s *ReportService) PageStats(ctx context.Context) ([]models.PageStat, error) {
	stats, err := s.visits.PageStats(ctx)
	if err != nil {
		return nil, internal(err, "failed to load page statistics")
	}
	return stats, nil
}

// UserStats aggregates visits per user.
func (s *ReportService) UserStats(ctx context.Context) ([]models.UserStat, error) {
	stats, err := s.visits.UserStats(ctx)
	if err != nil {
		return nil, internal(err, "failed to load user statistics")
	}
	return stats, nil
}

// Export renders report kind in format.
func (s *ReportService) Export(ctx context.Context, kind ReportKind, format export.Format) (*ExportFile, error) {
	exporter, err := export.For(format)
	if err != nil {
		return nil, invalid(err.Error())
	}

	var table export.Table
	switch kind {
	case ReportPages:
		table, err = s.pageStatsTable(ctx)
	case ReportUsers:
		table, err = s.userStatsTable(ctx)
	case ReportEquipment:
		table, err = s.equipmentTable(ctx)
	default:
		return nil, invalid(fmt.Sprintf("unknown report %q", kind))
	}
	if err != nil {
		return nil, err
	}

	data, err := exporter.Render(table)
	if err != nil {
		return nil, internal(err, "failed to render report")
	}
	s.logger.Info("report exported", zap.String("report", string(kind)), zap.String("format", string(format)), zap.Int("rows", len(table.Rows)))
	return &ExportFile{
		FileName:    fmt.Sprintf("%s_report_%s%s", kind, s.now().Format("20060102"), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Data:        data,
	}, nil
}

func (s *ReportService) pageStatsTable(ctx context.Context) (export.Table, error) {
	stats, err := s.PageStats(ctx)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{Title: "Page visits", Columns: []string{"No.", "Page", "Visits"}}
	for i, st := range stats {
		table.Rows = append(table.Rows, []string{strconv.Itoa(i + 1), st.Path, strconv.Itoa(st.Visits)})
	}
	return table, nil
}

func (s *ReportService) userStatsTable(ctx context.Context) (export.Table, error) {
	stats, err := s.UserStats(ctx)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{Title: "Visits by user", Columns: []string{"No.", "User", "Visits"}}
	for i, st := range stats {
		name := "Anonymous"
		if st.UserName != nil && *st.UserName != "" {
			name = *st.UserName
		}
		table.Rows = append(table.Rows, []string{strconv.Itoa(i + 1), name, strconv.Itoa(st.Visits)})
	}
	return table, nil
}

func (s *ReportService) equipmentTable(ctx context.Context) (export.Table, error) {
	table := export.Table{
		Title:   "Equipment inventory",
		Columns: []string{"Inventory No.", "Name", "Category", "Status", "Purchase date", "Cost", "Responsible"},
	}
	plan := query.Build(query.Criteria{}, query.Sort{Field: string(query.FieldInventoryNumber), Direction: query.Ascending})
	for page := 1; ; page++ {
		items, total, err := s.equipment.List(ctx, plan, repository.Page{Number: page, Size: exportBatch})
		if err != nil {
			return export.Table{}, internal(err, "failed to load equipment")
		}
		for _, item := range items {
			table.Rows = append(table.Rows, []string{
				item.InventoryNumber,
				item.Name,
				deref(item.CategoryName),
				string(item.Status),
				item.PurchaseDate.Format(dateLayout),
				strconv.FormatFloat(item.Cost, 'f', 2, 64),
				deref(item.ResponsibleName),
			})
		}
		if len(items) == 0 || page*exportBatch >= total {
			break
		}
	}
	return table, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
