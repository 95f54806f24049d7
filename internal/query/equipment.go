// Package query turns typed equipment filters into a declarative query plan.
//
// A Plan is plain data: a list of AND-ed predicates and an ordering. The
// storage layer renders it to SQL; Apply evaluates it over an in-memory slice.
package query

import (
	"strings"
	"time"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

// Field identifies an equipment attribute a plan can filter or order on.
type Field string

const (
	FieldID              Field = "id"
	FieldName            Field = "name"
	FieldInventoryNumber Field = "inventory_number"
	FieldPurchaseDate    Field = "purchase_date"
	FieldStatus          Field = "status"
	FieldCategoryID      Field = "category_id"
	FieldCategoryName    Field = "category_name"
)

// Operator is a predicate comparison.
type Operator string

const (
	OpContainsFold Operator = "contains_fold"
	OpEqual        Operator = "eq"
	OpGreaterEqual Operator = "gte"
	OpLessEqual    Operator = "lte"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection maps user input to a Direction. ok is false for anything
// other than asc/desc in any letter case.
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "asc":
		return Ascending, true
	case "desc":
		return Descending, true
	}
	return "", false
}

// DefaultSort is applied when the requested sort field is not allowed.
var DefaultSort = Sort{Field: string(FieldPurchaseDate), Direction: Descending}

// sortable is the allow-list of client sort keys.
var sortable = map[string]Field{
	"name":             FieldName,
	"inventory_number": FieldInventoryNumber,
	"purchase_date":    FieldPurchaseDate,
	"status":           FieldStatus,
	"category_name":    FieldCategoryName,
}

// SortableFields returns the allow-listed sort keys.
func SortableFields() []string {
	return []string{"name", "inventory_number", "purchase_date", "status", "category_name"}
}

// Criteria are already-validated equipment filters. Nil fields are absent.
type Criteria struct {
	Name          string
	CategoryID    *int64
	Status        *models.EquipmentStatus
	PurchasedFrom *time.Time
	PurchasedTo   *time.Time
}

// Sort is a requested ordering. Field is untrusted and resolved through the allow-list.
type Sort struct {
	Field     string
	Direction Direction
}

// Predicate is one AND-ed filter condition.
type Predicate struct {
	Field Field
	Op    Operator
	Value interface{}
}

// OrderTerm is one ordering key.
type OrderTerm struct {
	Field     Field
	Direction Direction
}

// Plan is an unexecuted equipment query.
type Plan struct {
	Predicates []Predicate
	OrderBy    []OrderTerm
}

// Build composes criteria and sort into a plan. It never fails: an unknown
// sort field falls back to DefaultSort and the id tie-break is always appended.
func Build(c Criteria, s Sort) Plan {
	plan := Plan{}

	if name := strings.TrimSpace(c.Name); name != "" {
		plan.Predicates = append(plan.Predicates, Predicate{Field: FieldName, Op: OpContainsFold, Value: strings.ToLower(name)})
	}
	if c.CategoryID != nil && *c.CategoryID != 0 {
		plan.Predicates = append(plan.Predicates, Predicate{Field: FieldCategoryID, Op: OpEqual, Value: *c.CategoryID})
	}
	if c.Status != nil {
		plan.Predicates = append(plan.Predicates, Predicate{Field: FieldStatus, Op: OpEqual, Value: *c.Status})
	}
	if c.PurchasedFrom != nil {
		plan.Predicates = append(plan.Predicates, Predicate{Field: FieldPurchaseDate, Op: OpGreaterEqual, Value: dateOnly(*c.PurchasedFrom)})
	}
	if c.PurchasedTo != nil {
		plan.Predicates = append(plan.Predicates, Predicate{Field: FieldPurchaseDate, Op: OpLessEqual, Value: dateOnly(*c.PurchasedTo)})
	}

	field, dir := resolveSort(s)
	plan.OrderBy = []OrderTerm{
		{Field: field, Direction: dir},
		{Field: FieldID, Direction: dir},
	}
	return plan
}

func resolveSort(s Sort) (Field, Direction) {
	field, ok := sortable[strings.ToLower(strings.TrimSpace(s.Field))]
	if !ok {
		return FieldPurchaseDate, Descending
	}
	switch s.Direction {
	case Ascending, Descending:
		return field, s.Direction
	}
	return field, Descending
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
