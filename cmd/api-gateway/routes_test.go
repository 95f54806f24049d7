package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/office-inventory-api/internal/handler"
	"github.com/noah-isme/office-inventory-api/internal/models"
	"github.com/noah-isme/office-inventory-api/internal/permission"
	"github.com/noah-isme/office-inventory-api/internal/query"
	"github.com/noah-isme/office-inventory-api/internal/service"
	appErrors "github.com/noah-isme/office-inventory-api/pkg/errors"
	"github.com/noah-isme/office-inventory-api/pkg/config"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrTokenInvalid
}

type visitStub struct{ paths []string }

func (v *visitStub) RecordVisit(_ context.Context, path string, _ *int64) error {
	v.paths = append(v.paths, path)
	return nil
}

type equipmentStub struct{}

func (equipmentStub) List(context.Context, query.Criteria, query.Sort, int, int) (*service.EquipmentList, error) {
	return &service.EquipmentList{}, nil
}

func (equipmentStub) Get(_ context.Context, id int64) (*models.EquipmentDetail, error) {
	return &models.EquipmentDetail{Equipment: models.Equipment{ID: id, Name: "Printer"}}, nil
}

func (equipmentStub) GetWithHistory(_ context.Context, id int64, _ int) (*models.EquipmentWithHistory, error) {
	return &models.EquipmentWithHistory{
		EquipmentDetail: &models.EquipmentDetail{Equipment: models.Equipment{ID: id, Name: "Printer"}},
		ServiceRecords:  []models.ServiceRecord{{ID: 1, EquipmentID: id, ServiceType: "Repair"}},
	}, nil
}

func (equipmentStub) ResponsibleCandidates(context.Context) ([]models.ResponsibleCandidate, error) {
	return nil, nil
}

func (equipmentStub) Create(context.Context, models.EquipmentRequest, *models.ImageUpload, service.Actor) (*models.EquipmentDetail, error) {
	return nil, nil
}

func (equipmentStub) Update(context.Context, int64, models.EquipmentRequest, *models.ImageUpload, service.Actor) (*models.EquipmentDetail, error) {
	return nil, nil
}

func (equipmentStub) Delete(context.Context, int64, service.Actor) error {
	return nil
}

func testRouter(features config.FeatureConfig) (*gin.Engine, *visitStub) {
	gin.SetMode(gin.TestMode)
	visits := &visitStub{}
	metrics := service.NewMetricsService()
	evaluator := permission.NewEvaluator()
	cfg := &config.Config{APIPrefix: "/api/v1", Features: features}
	r := newRouter(cfg, zap.NewNop(), routeDeps{
		evaluator: evaluator,
		tokens: tokenStub{
			"admin": {UserID: 1, Role: models.RoleAdmin},
			"tech":  {UserID: 2, Role: models.RoleTechSpecialist},
			"user":  {UserID: 3, Role: models.RoleUser},
			"guest": {UserID: 4, Role: models.RoleGuest},
		},
		metrics:        metrics,
		visits:         visits,
		auth:           handler.NewAuthHandler(nil),
		users:          handler.NewUserHandler(nil),
		equipment:      handler.NewEquipmentHandler(equipmentStub{}, nil, evaluator, 10, 1<<20),
		serviceRecords: handler.NewServiceRecordHandler(nil),
		categories:     handler.NewCategoryHandler(nil),
		images:         handler.NewImageHandler(nil),
		reports:        handler.NewReportHandler(nil),
		ops:            handler.NewMetricsHandler(metrics, nil),
	})
	return r, visits
}

func TestRoutesRegistered(t *testing.T) {
	r, _ := testRouter(config.FeatureConfig{Metrics: true, Swagger: true, VisitLog: true})

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /health",
		"GET /metrics",
		"GET /swagger/*any",
		"POST /api/v1/auth/login",
		"POST /api/v1/auth/refresh",
		"POST /api/v1/auth/logout",
		"POST /api/v1/auth/change-password",
		"GET /api/v1/auth/me",
		"GET /api/v1/images/:id",
		"GET /api/v1/equipment",
		"GET /api/v1/equipment/filters",
		"GET /api/v1/equipment/responsible-candidates",
		"POST /api/v1/equipment",
		"GET /api/v1/equipment/:id",
		"PUT /api/v1/equipment/:id",
		"DELETE /api/v1/equipment/:id",
		"GET /api/v1/equipment/:id/service-records",
		"POST /api/v1/equipment/:id/service-records",
		"GET /api/v1/categories",
		"POST /api/v1/categories",
		"PUT /api/v1/categories/:id",
		"DELETE /api/v1/categories/:id",
		"GET /api/v1/roles",
		"GET /api/v1/users",
		"POST /api/v1/users",
		"GET /api/v1/users/:id/profile",
		"PUT /api/v1/users/:id/profile",
		"GET /api/v1/reports/visits",
		"GET /api/v1/reports/pages",
		"GET /api/v1/reports/users",
		"GET /api/v1/reports/:kind/export",
		"GET /api/v1/metrics/summary",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "missing route %s", route)
	}
}

func TestRoutesOptionalSurfaces(t *testing.T) {
	r, _ := testRouter(config.FeatureConfig{})

	for _, route := range r.Routes() {
		assert.NotEqual(t, "/metrics", route.Path)
		assert.NotEqual(t, "/swagger/*any", route.Path)
		assert.NotEqual(t, "/api/v1/metrics/summary", route.Path)
	}
}

func TestRoutesEnforcePermissions(t *testing.T) {
	r, visits := testRouter(config.FeatureConfig{VisitLog: true})

	cases := []struct {
		method string
		path   string
		token  string
		status int
	}{
		{http.MethodGet, "/api/v1/equipment", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/equipment", "bogus", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/equipment", "guest", http.StatusForbidden},
		{http.MethodPost, "/api/v1/equipment", "user", http.StatusForbidden},
		{http.MethodPost, "/api/v1/categories", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/users", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/users/9/profile", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/reports/pages", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/reports/users/export", "user", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path+" "+tc.token, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
	assert.Empty(t, visits.paths)
}

func TestHealthWithoutChecks(t *testing.T) {
	r, _ := testRouter(config.FeatureConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestEquipmentDetailHistoryFollowsPermission(t *testing.T) {
	r, _ := testRouter(config.FeatureConfig{})

	get := func(path, token string) (int, map[string]json.RawMessage) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var env struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &env)
		return w.Code, env.Data
	}

	status, _ := get("/api/v1/equipment/1/service-records", "user")
	assert.Equal(t, http.StatusForbidden, status)

	status, data := get("/api/v1/equipment/1", "user")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, data, "name")
	assert.NotContains(t, data, "service_records")

	for _, token := range []string{"admin", "tech"} {
		status, data = get("/api/v1/equipment/1", token)
		assert.Equal(t, http.StatusOK, status, token)
		assert.Contains(t, data, "service_records", token)
	}
}
