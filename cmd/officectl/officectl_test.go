package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/office-inventory-api/internal/models"
)

type fakeUserStore struct {
	roles  map[models.RoleName]*models.Role
	logins map[string]bool
	users  []*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{roles: map[models.RoleName]*models.Role{}, logins: map[string]bool{}}
}

func (f *fakeUserStore) EnsureRole(_ context.Context, name models.RoleName, description string) (*models.Role, error) {
	if role, ok := f.roles[name]; ok {
		return role, nil
	}
	role := &models.Role{ID: int64(len(f.roles) + 1), Name: name, Description: description}
	f.roles[name] = role
	return role, nil
}

func (f *fakeUserStore) LoginExists(_ context.Context, login string) (bool, error) {
	return f.logins[login], nil
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	user.ID = int64(len(f.users) + 1)
	f.users = append(f.users, user)
	f.logins[user.Login] = true
	return nil
}

type fakeCategoryStore struct {
	names map[string]bool
}

func (f *fakeCategoryStore) NameExists(_ context.Context, name string, _ int64) (bool, error) {
	return f.names[strings.ToLower(name)], nil
}

func (f *fakeCategoryStore) Create(_ context.Context, category *models.Category) error {
	f.names[strings.ToLower(category.Name)] = true
	return nil
}

func TestEmbeddedSeedParses(t *testing.T) {
	data, err := parseSeed(bytes.NewReader(defaultSeed))
	require.NoError(t, err)

	assert.Len(t, data.Roles, 4)
	assert.NotEmpty(t, data.Categories)
	logins := make([]string, 0, len(data.Users))
	for _, u := range data.Users {
		logins = append(logins, u.Login)
	}
	assert.ElementsMatch(t, []string{"admin", "tech", "user"}, logins)
}

func TestParseSeedRejectsInvalid(t *testing.T) {
	_, err := parseSeed(strings.NewReader("users:\n  - login: ghost\n"))
	assert.Error(t, err)

	_, err = parseSeed(strings.NewReader("unknown: true\n"))
	assert.Error(t, err)
}

func TestSeederIsIdempotent(t *testing.T) {
	data, err := parseSeed(bytes.NewReader(defaultSeed))
	require.NoError(t, err)

	users := newFakeUserStore()
	categories := &fakeCategoryStore{names: map[string]bool{"printers": true}}
	s := &seeder{users: users, categories: categories, hashCost: bcrypt.MinCost, logger: zap.NewNop()}

	res, err := s.run(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Roles)
	assert.Equal(t, len(data.Categories)-1, res.Categories)
	assert.Equal(t, 3, res.Users)

	admin := users.users[0]
	assert.Equal(t, "admin", admin.Login)
	require.NotNil(t, admin.RoleID)
	assert.Equal(t, users.roles[models.RoleAdmin].ID, *admin.RoleID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

	res, err = s.run(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Categories)
	assert.Equal(t, 0, res.Users)
	assert.Len(t, users.users, 3)
}

func TestSeederUnknownRole(t *testing.T) {
	data := &SeedData{Users: []SeedUser{{Login: "x", Password: "pw", Role: "Janitor"}}}
	s := &seeder{users: newFakeUserStore(), categories: &fakeCategoryStore{names: map[string]bool{}}, hashCost: bcrypt.MinCost, logger: zap.NewNop()}

	_, err := s.run(context.Background(), data)
	assert.ErrorContains(t, err, "unknown role")
}

func TestHashPasswordCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"hash-password", "--cost", "4", "s3cret"})

	require.NoError(t, root.Execute())
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPasswordRequiresArgument(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"hash-password"})

	assert.Error(t, root.Execute())
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "officectl version dev\n", out.String())
}
