package dto

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/query"
)

const dateLayout = "2006-01-02"

// Warning describes a query parameter that was dropped during parsing.
type Warning struct {
	Param   string `json:"param"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// EquipmentListQuery is the parsed form of GET /equipment parameters.
type EquipmentListQuery struct {
	Criteria query.Criteria
	Sort     query.Sort
	Page     int
	PageSize int
}

// ParseEquipmentListQuery converts untrusted query parameters into typed
// criteria. Malformed values are dropped and reported as warnings; the sort
// field is passed through untouched for the builder's allow-list.
func ParseEquipmentListQuery(values url.Values, defaultPageSize int) (EquipmentListQuery, []Warning) {
	var (
		q        EquipmentListQuery
		warnings []Warning
	)

	q.Criteria.Name = strings.TrimSpace(values.Get("name_filter"))

	if raw := strings.TrimSpace(values.Get("category_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		switch {
		case err != nil || id < 0:
			warnings = append(warnings, Warning{Param: "category_id", Value: raw, Message: "category_id must be a non-negative integer"})
		case id > 0:
			q.Criteria.CategoryID = &id
		}
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := models.EquipmentStatus(raw)
		if status.Valid() {
			q.Criteria.Status = &status
		} else {
			warnings = append(warnings, Warning{Param: "status", Value: raw, Message: "unknown status"})
		}
	}

	q.Criteria.PurchasedFrom, warnings = parseDate(values, "purchase_date_from", warnings)
	q.Criteria.PurchasedTo, warnings = parseDate(values, "purchase_date_to", warnings)

	q.Sort.Field = strings.TrimSpace(values.Get("sort_by"))
	if dir, ok := query.ParseDirection(values.Get("sort_direction")); ok {
		q.Sort.Direction = dir
	} else {
		q.Sort.Direction = query.Descending
	}

	q.Page = parsePositive(values.Get("page"), 1)
	q.PageSize = parsePositive(values.Get("page_size"), defaultPageSize)
	return q, warnings
}

func parseDate(values url.Values, param string, warnings []Warning) (*time.Time, []Warning) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return nil, warnings
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, append(warnings, Warning{Param: param, Value: raw, Message: "date must use YYYY-MM-DD"})
	}
	return &t, warnings
}

func parsePositive(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// BuildWarningsMeta returns the response meta block for warnings, or nil when empty.
func BuildWarningsMeta(warnings []Warning) map[string]interface{} {
	if len(warnings) == 0 {
		return nil
	}
	return map[string]interface{}{"warnings": warnings}
}
