package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

func TestCanMatrix(t *testing.T) {
	e := NewEvaluator()
	tech := map[Action]bool{
		ViewEquipmentList:   true,
		ViewEquipmentDetail: true,
		AddServiceRecord:    true,
		ViewServiceHistory:  true,
	}
	user := map[Action]bool{
		ViewEquipmentList:   true,
		ViewEquipmentDetail: true,
	}

	for _, def := range e.Actions() {
		a := def.Action
		assert.True(t, e.Can(models.RoleAdmin, a), "admin %s", a)
		assert.Equal(t, tech[a], e.Can(models.RoleTechSpecialist, a), "tech %s", a)
		assert.Equal(t, user[a], e.Can(models.RoleUser, a), "user %s", a)
		assert.False(t, e.Can(models.RoleGuest, a), "guest %s", a)
		assert.False(t, e.Can("", a), "no role %s", a)
		assert.False(t, e.Can("Superuser", a), "unknown role %s", a)
	}
}

func TestCanSpecificRules(t *testing.T) {
	e := NewEvaluator()
	assert.False(t, e.Can(models.RoleTechSpecialist, DeleteEquipment))
	assert.False(t, e.Can(models.RoleUser, AddServiceRecord))
	assert.True(t, e.Can(models.RoleUser, ViewEquipmentList))
}

func TestCanUnknownActionDenied(t *testing.T) {
	e := NewEvaluator()
	assert.False(t, e.Can(models.RoleAdmin, Action("drop_database")))
	assert.False(t, e.CanOnTarget(models.RoleAdmin, Action("drop_database"), 1, 1))
}

func TestCanOnTarget(t *testing.T) {
	e := NewEvaluator()
	tests := []struct {
		name     string
		role     models.RoleName
		action   Action
		actor    int64
		target   int64
		expected bool
	}{
		{"user own profile", models.RoleUser, ViewProfile, 7, 7, true},
		{"user other profile", models.RoleUser, ViewProfile, 7, 8, false},
		{"tech edits own profile", models.RoleTechSpecialist, EditProfile, 3, 3, true},
		{"admin any profile", models.RoleAdmin, EditProfile, 1, 9, true},
		{"guest own profile", models.RoleGuest, ViewProfile, 5, 5, false},
		{"no role own profile", "", ViewProfile, 5, 5, false},
		{"zero actor", models.RoleUser, ViewLogs, 0, 0, false},
		{"own logs", models.RoleUser, ViewLogs, 4, 4, true},
		{"target ignored for grant", models.RoleUser, ViewEquipmentList, 4, 99, true},
		{"target ignored for deny", models.RoleUser, DeleteEquipment, 4, 4, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, e.CanOnTarget(tc.role, tc.action, tc.actor, tc.target))
		})
	}
}

func TestSelfScopedActionsNotGrantedUnconditionally(t *testing.T) {
	e := NewEvaluator()
	for _, def := range e.Actions() {
		if !def.SelfScoped {
			continue
		}
		assert.False(t, e.Can(models.RoleUser, def.Action), def.Action)
		assert.False(t, e.Can(models.RoleTechSpecialist, def.Action), def.Action)
	}
}

func TestAllowed(t *testing.T) {
	e := NewEvaluator()
	assert.Equal(t, []Action{ViewEquipmentList, ViewEquipmentDetail}, e.Allowed(models.RoleUser))
	assert.Empty(t, e.Allowed(models.RoleGuest))
	assert.Len(t, e.Allowed(models.RoleAdmin), len(e.Actions()))
}
