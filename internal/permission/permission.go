// Package permission decides which roles may perform which actions.
//
// The evaluator is a pure function of its inputs. It never performs I/O and
// resolves every unknown role or action to "denied".
package permission

import "github.com/noah-isme/office-inventory-api/internal/models"

// Action names an operation subject to a permission check.
type Action string

const (
	ViewEquipmentList   Action = "view_equipment_list"
	ViewEquipmentDetail Action = "view_equipment_detail"
	CreateEquipment     Action = "create_equipment"
	EditEquipment       Action = "edit_equipment"
	DeleteEquipment     Action = "delete_equipment"
	AddServiceRecord    Action = "add_service_record"
	ViewServiceHistory  Action = "view_service_history"
	ManageCategories    Action = "manage_categories"
	ManageUsers         Action = "manage_users"
	ViewProfile         Action = "view_profile"
	EditProfile         Action = "edit_profile"
	ViewLogs            Action = "view_logs"
	ViewReports         Action = "view_reports"
	ExportReports       Action = "export_reports"
)

// ActionSpec describes an action in the action table.
type ActionSpec struct {
	Action Action
	// SelfScoped actions target a principal; CanOnTarget lets any
	// authenticated role act on its own record.
	SelfScoped bool
}

var actionTable = []ActionSpec{
	{Action: ViewEquipmentList},
	{Action: ViewEquipmentDetail},
	{Action: CreateEquipment},
	{Action: EditEquipment},
	{Action: DeleteEquipment},
	{Action: AddServiceRecord},
	{Action: ViewServiceHistory},
	{Action: ManageCategories},
	{Action: ManageUsers},
	{Action: ViewProfile, SelfScoped: true},
	{Action: EditProfile, SelfScoped: true},
	{Action: ViewLogs, SelfScoped: true},
	{Action: ViewReports},
	{Action: ExportReports},
}

// roleTable lists unconditional grants. Admin is handled as a superset.
var roleTable = map[models.RoleName][]Action{
	models.RoleTechSpecialist: {ViewEquipmentList, ViewEquipmentDetail, AddServiceRecord, ViewServiceHistory},
	models.RoleUser:           {ViewEquipmentList, ViewEquipmentDetail},
	models.RoleGuest:          {},
}

// Evaluator answers permission questions against a fixed table.
type Evaluator struct {
	actions map[Action]ActionSpec
	grants  map[models.RoleName]map[Action]struct{}
}

// NewEvaluator builds the evaluator from the built-in tables.
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		actions: make(map[Action]ActionSpec, len(actionTable)),
		grants:  make(map[models.RoleName]map[Action]struct{}, len(roleTable)+1),
	}
	for _, def := range actionTable {
		e.actions[def.Action] = def
	}
	admin := make(map[Action]struct{}, len(actionTable))
	for _, def := range actionTable {
		admin[def.Action] = struct{}{}
	}
	e.grants[models.RoleAdmin] = admin
	for role, actions := range roleTable {
		set := make(map[Action]struct{}, len(actions))
		for _, action := range actions {
			set[action] = struct{}{}
		}
		e.grants[role] = set
	}
	return e
}

// Can reports whether role may perform action. An empty role is denied.
func (e *Evaluator) Can(role models.RoleName, action Action) bool {
	if role == "" {
		return false
	}
	if _, known := e.actions[action]; !known {
		return false
	}
	granted, ok := e.grants[role]
	if !ok {
		return false
	}
	_, allowed := granted[action]
	return allowed
}

// CanOnTarget extends Can with the ownership rule for self-scoped actions:
// an authenticated principal may act on its own record. Non self-scoped
// actions ignore the target.
func (e *Evaluator) CanOnTarget(role models.RoleName, action Action, actorID, targetID int64) bool {
	if e.Can(role, action) {
		return true
	}
	def, known := e.actions[action]
	if !known || !def.SelfScoped {
		return false
	}
	if !IsAuthenticatedRole(role) {
		return false
	}
	return actorID > 0 && actorID == targetID
}

// Actions returns the action table in declaration order.
func (e *Evaluator) Actions() []ActionSpec {
	out := make([]ActionSpec, len(actionTable))
	copy(out, actionTable)
	return out
}

// Allowed returns every action role may perform unconditionally.
func (e *Evaluator) Allowed(role models.RoleName) []Action {
	var out []Action
	for _, def := range actionTable {
		if e.Can(role, def.Action) {
			out = append(out, def.Action)
		}
	}
	return out
}

// IsAuthenticatedRole reports whether role is one that owns a user account.
func IsAuthenticatedRole(role models.RoleName) bool {
	switch role {
	case models.RoleAdmin, models.RoleTechSpecialist, models.RoleUser:
		return true
	}
	return false
}
