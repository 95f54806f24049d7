package query

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

// Apply evaluates plan over records and returns the matching rows in plan
// order. The input slice is not modified.
//
// Missing category names order after present ones ascending and before them
// descending, matching PostgreSQL's default NULL placement.
//
// Names and category names compare case-insensitively with byte order as the
// tie-break. PostgreSQL sorts text by the database collation, so results can
// still differ from SQL for locale-specific orderings.
func Apply(plan Plan, records []models.EquipmentDetail) []models.EquipmentDetail {
	out := make([]models.EquipmentDetail, 0, len(records))
	for _, r := range records {
		if Matches(plan, r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return compare(plan.OrderBy, out[i], out[j]) < 0
	})
	return out
}

// Matches reports whether record satisfies every predicate in plan.
func Matches(plan Plan, record models.EquipmentDetail) bool {
	for _, p := range plan.Predicates {
		if !matchPredicate(p, record) {
			return false
		}
	}
	return true
}

func matchPredicate(p Predicate, r models.EquipmentDetail) bool {
	switch p.Field {
	case FieldName:
		needle, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(r.Name), needle)
	case FieldCategoryID:
		id, _ := p.Value.(int64)
		return r.CategoryID != nil && *r.CategoryID == id
	case FieldStatus:
		status, _ := p.Value.(models.EquipmentStatus)
		return r.Status == status
	case FieldPurchaseDate:
		bound, _ := p.Value.(time.Time)
		day := dateOnly(r.PurchaseDate)
		switch p.Op {
		case OpGreaterEqual:
			return !day.Before(bound)
		case OpLessEqual:
			return !day.After(bound)
		}
	}
	return false
}

func compare(terms []OrderTerm, a, b models.EquipmentDetail) int {
	for _, term := range terms {
		c := compareField(term.Field, a, b)
		if c == 0 {
			continue
		}
		if term.Direction == Descending {
			return -c
		}
		return c
	}
	return 0
}

func compareField(field Field, a, b models.EquipmentDetail) int {
	switch field {
	case FieldID:
		return compareInt(a.ID, b.ID)
	case FieldName:
		return compareText(a.Name, b.Name)
	case FieldInventoryNumber:
		return strings.Compare(a.InventoryNumber, b.InventoryNumber)
	case FieldStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case FieldPurchaseDate:
		return dateOnly(a.PurchaseDate).Compare(dateOnly(b.PurchaseDate))
	case FieldCategoryName:
		switch {
		case a.CategoryName == nil && b.CategoryName == nil:
			return 0
		case a.CategoryName == nil:
			return 1
		case b.CategoryName == nil:
			return -1
		}
		return compareText(*a.CategoryName, *b.CategoryName)
	}
	return 0
}

func compareText(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
