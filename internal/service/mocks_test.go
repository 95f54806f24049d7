package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/query"
	"github.com/noah-isme/office-inventory-api/internal/repository"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/jobs"
	"github.com/noah-isme/office-inventory-api/pkg/storage"
)

type mockAuditRepo struct {
	logs []*models.AuditLog
	err  error
}

func (m *mockAuditRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return m.err
}

func (m *mockAuditRepo) actions() []string {
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

// mockUserStore backs every user-facing repository interface.
type mockUserStore struct {
	users         map[int64]*models.User
	roles         map[models.RoleName]*models.Role
	refreshTokens map[string]*models.RefreshToken
	revokedUsers  []int64
	nextID        int64
	listFilter    models.UserFilter
	findErr       error
	updateErr     error
}

func newMockUserStore(users ...*models.User) *mockUserStore {
	m := &mockUserStore{
		users:         make(map[int64]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
		roles: map[models.RoleName]*models.Role{
			models.RoleAdmin:          {ID: 1, Name: models.RoleAdmin},
			models.RoleTechSpecialist: {ID: 2, Name: models.RoleTechSpecialist},
			models.RoleUser:           {ID: 3, Name: models.RoleUser},
			models.RoleGuest:          {ID: 4, Name: models.RoleGuest},
		},
		nextID: 100,
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func newUser(id int64, login string, role models.RoleName) *models.User {
	r := role
	return &models.User{ID: id, Login: login, LastName: "Last" + login, FirstName: "First", Role: &r}
}

func (m *mockUserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.users {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) LoginExists(ctx context.Context, login string) (bool, error) {
	_, err := m.FindByLogin(ctx, login)
	return err == nil, nil
}

func (m *mockUserStore) FindRoleByName(ctx context.Context, name models.RoleName) (*models.Role, error) {
	if r, ok := m.roles[name]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	return []models.Role{*m.roles[models.RoleAdmin], *m.roles[models.RoleTechSpecialist], *m.roles[models.RoleUser], *m.roles[models.RoleGuest]}, nil
}

func (m *mockUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	m.listFilter = filter
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserStore) ListByRoles(ctx context.Context, roles []models.RoleName) ([]models.ResponsibleCandidate, error) {
	var out []models.ResponsibleCandidate
	for _, u := range m.users {
		for _, r := range roles {
			if u.RoleValue() == r {
				out = append(out, models.ResponsibleCandidate{ID: u.ID, FullName: u.FullName(), Role: r})
			}
		}
	}
	return out, nil
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) Update(ctx context.Context, user *models.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserStore) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *mockUserStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		return rt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockUserStore) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.revokedUsers = append(m.revokedUsers, userID)
	for _, rt := range m.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

type mockEquipmentRepo struct {
	items     map[int64]*models.EquipmentDetail
	nextID    int64
	listCalls int
	lastPlan  query.Plan
	lastPage  repository.Page
	createErr error
	updateErr error
}

func newMockEquipmentRepo(items ...models.EquipmentDetail) *mockEquipmentRepo {
	m := &mockEquipmentRepo{items: make(map[int64]*models.EquipmentDetail), nextID: 10}
	for i := range items {
		item := items[i]
		m.items[item.ID] = &item
	}
	return m
}

func (m *mockEquipmentRepo) List(ctx context.Context, plan query.Plan, page repository.Page) ([]models.EquipmentDetail, int, error) {
	m.listCalls++
	m.lastPlan = plan
	m.lastPage = page
	all := make([]models.EquipmentDetail, 0, len(m.items))
	for _, item := range m.items {
		all = append(all, *item)
	}
	all = query.Apply(plan, all)
	total := len(all)
	size := page.Size
	if size <= 0 {
		size = 10
	}
	number := page.Number
	if number < 1 {
		number = 1
	}
	start := (number - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *mockEquipmentRepo) FindByID(ctx context.Context, id int64) (*models.EquipmentDetail, error) {
	if item, ok := m.items[id]; ok {
		copied := *item
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEquipmentRepo) InventoryNumberExists(ctx context.Context, number string, excludeID int64) (bool, error) {
	for _, item := range m.items {
		if item.InventoryNumber == number && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEquipmentRepo) Create(ctx context.Context, item *models.Equipment) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	item.ID = m.nextID
	item.CreatedAt = time.Now()
	m.items[item.ID] = &models.EquipmentDetail{Equipment: *item}
	return nil
}

func (m *mockEquipmentRepo) Update(ctx context.Context, item *models.Equipment) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.items[item.ID]; !ok {
		return sql.ErrNoRows
	}
	m.items[item.ID] = &models.EquipmentDetail{Equipment: *item}
	return nil
}

func (m *mockEquipmentRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func (m *mockEquipmentRepo) CountByImage(ctx context.Context, imageID string, excludeID int64) (int, error) {
	n := 0
	for _, item := range m.items {
		if item.ImageID != nil && *item.ImageID == imageID && item.ID != excludeID {
			n++
		}
	}
	return n, nil
}

type mockCategoryRepo struct {
	categories map[int64]*models.Category
	nextID     int64
}

func newMockCategoryRepo(categories ...models.Category) *mockCategoryRepo {
	m := &mockCategoryRepo{categories: make(map[int64]*models.Category), nextID: 10}
	for i := range categories {
		c := categories[i]
		m.categories[c.ID] = &c
	}
	return m
}

func (m *mockCategoryRepo) List(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	if c, ok := m.categories[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCategoryRepo) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	m.nextID++
	category.ID = m.nextID
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *models.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.categories, id)
	return nil
}

type mockHistoryRepo struct {
	records []models.ServiceRecord
	created []*models.ServiceRecord
}

func (m *mockHistoryRepo) Create(ctx context.Context, record *models.ServiceRecord) error {
	record.ID = int64(len(m.created) + 1)
	record.CreatedAt = time.Now()
	m.created = append(m.created, record)
	return nil
}

func (m *mockHistoryRepo) ListByEquipment(ctx context.Context, equipmentID int64, page repository.Page) ([]models.ServiceRecord, int, error) {
	var out []models.ServiceRecord
	for _, r := range m.records {
		if r.EquipmentID == equipmentID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

type mockImageRepo struct {
	images map[string]*models.Image
}

func newMockImageRepo() *mockImageRepo {
	return &mockImageRepo{images: make(map[string]*models.Image)}
}

func (m *mockImageRepo) FindByID(ctx context.Context, id string) (*models.Image, error) {
	if img, ok := m.images[id]; ok {
		return img, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockImageRepo) FindByMD5(ctx context.Context, hash string) (*models.Image, error) {
	for _, img := range m.images {
		if img.MD5Hash == hash {
			return img, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockImageRepo) Create(ctx context.Context, img *models.Image) error {
	m.images[img.ID] = img
	return nil
}

func (m *mockImageRepo) Delete(ctx context.Context, id string) error {
	delete(m.images, id)
	return nil
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

type mockQueue struct {
	jobs []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.jobs = append(m.jobs, job)
	return nil
}

type mockCacheRepo struct {
	entries  map[string][]byte
	patterns []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{entries: make(map[string][]byte)}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

type mockVisitRepo struct {
	created    []string
	lastFilter models.VisitFilter
	pages      []models.PageStat
	users      []models.UserStat
}

func (m *mockVisitRepo) Create(ctx context.Context, path string, userID *int64) error {
	m.created = append(m.created, path)
	return nil
}

func (m *mockVisitRepo) List(ctx context.Context, filter models.VisitFilter) ([]models.VisitLog, int, error) {
	m.lastFilter = filter
	return []models.VisitLog{{ID: 1, Path: "/equipment", UserID: filter.UserID}}, 1, nil
}

func (m *mockVisitRepo) PageStats(ctx context.Context) ([]models.PageStat, error) {
	return m.pages, nil
}

func (m *mockVisitRepo) UserStats(ctx context.Context) ([]models.UserStat, error) {
	return m.users, nil
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func errorCode(err error) string {
	if e := appErrors.FromError(err); e != nil {
		return e.Code
	}
	return ""
}
