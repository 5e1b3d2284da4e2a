package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pestcontrol_backend/internal/assignments/assignmentstest"
	assignmentsdomain "pestcontrol_backend/internal/assignments/domain"
	assignmentsservice "pestcontrol_backend/internal/assignments/service"
	"pestcontrol_backend/internal/reports/domain"
	"pestcontrol_backend/internal/reports/reportstest"
	"pestcontrol_backend/internal/reports/service"
	"pestcontrol_backend/internal/reports/transport"
	"pestcontrol_backend/platform/db/dbtest"
	"pestcontrol_backend/platform/httpkit"
	"pestcontrol_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	headerUser = "X-Test-User"
	headerRole = "X-Test-Role"
)

// fakeAuth stands in for AuthRequired: it trusts the test headers.
func fakeAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(headerUser)
		if raw == "" {
			c.Next()
			return
		}
		c.Set(httpkit.ContextUserIDKey, uuid.MustParse(raw))
		c.Set(httpkit.ContextRolesKey, []string{c.GetHeader(headerRole)})
		c.Next()
	}
}

type testAPI struct {
	engine   *gin.Engine
	store    *reportstest.Store
	clientID uuid.UUID
	pcoID    uuid.UUID
	adminID  uuid.UUID
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := reportstest.NewStore()
	assign := assignmentstest.NewStore()
	tx := dbtest.NewTransactor(store, assign)
	svc := service.New(service.Deps{
		Store:       store,
		Tx:          tx,
		Assignments: assignmentsservice.New(assign, tx, nil, nil),
	})

	api := &testAPI{store: store, pcoID: uuid.New(), adminID: uuid.New()}
	api.clientID = store.SeedClient("Harbour Bakery", domain.Baseline{})
	assign.Seed(assignmentsdomain.Assignment{ClientID: api.clientID, PcoID: api.pcoID, Status: assignmentsdomain.StatusActive})

	h := New(svc, validator.New())
	engine := gin.New()
	engine.Use(fakeAuth())
	h.RegisterRoutes(engine.Group("/api/v1/reports"))
	admin := engine.Group("/api/v1/admin/reports")
	admin.Use(httpkit.RequireRole(httpkit.RoleAdmin))
	h.RegisterAdminRoutes(admin)
	api.engine = engine
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, user uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set(headerUser, user.String())
		req.Header.Set(headerRole, role)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateRequiresIdentity(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/reports", uuid.Nil, "", map[string]any{
		"client_id":    api.clientID,
		"report_type":  "bait_inspection",
		"service_date": "2026-05-04",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/reports", api.pcoID, httpkit.RolePCO, map[string]any{
		"client_id":    api.clientID,
		"report_type":  "crop_dusting",
		"service_date": "2026-05-04",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, msgValidationFailed, decode[httpkit.ErrorResponse](t, w).Error)
}

func TestCreateThenGetDraft(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/reports", api.pcoID, httpkit.RolePCO, map[string]any{
		"client_id":    api.clientID,
		"report_type":  "bait_inspection",
		"service_date": "2026-05-04",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[transport.ReportResponse](t, w)
	require.Equal(t, string(domain.StatusDraft), created.Status)
	require.Equal(t, "Harbour Bakery", created.ClientName)

	w = api.do(t, http.MethodGet, "/api/v1/reports/"+created.ID.String(), api.pcoID, httpkit.RolePCO, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, created.ID, decode[transport.ReportResponse](t, w).ID)

	w = api.do(t, http.MethodGet, "/api/v1/reports/"+created.ID.String(), uuid.New(), httpkit.RolePCO, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDuplicateCreateReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]any{
		"client_id":    api.clientID,
		"report_type":  "bait_inspection",
		"service_date": "2026-05-04",
	}
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/reports", api.pcoID, httpkit.RolePCO, body).Code)

	w := api.do(t, http.MethodPost, "/api/v1/reports", api.pcoID, httpkit.RolePCO, body)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestInvalidPathIDIsBadRequest(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodGet, "/api/v1/reports/not-a-uuid", api.pcoID, httpkit.RolePCO, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, msgInvalidID, decode[httpkit.ErrorResponse](t, w).Error)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/reports/"+uuid.NewString()+"/archive", api.pcoID, httpkit.RolePCO, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/reports/"+uuid.NewString()+"/archive", api.adminID, httpkit.RoleAdmin, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEditRequiresAdminRole(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPut, "/api/v1/admin/reports/"+uuid.NewString(), api.pcoID, httpkit.RolePCO, map[string]any{})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeclineRequiresNotes(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/v1/reports/"+uuid.NewString()+"/decline", api.adminID, httpkit.RoleAdmin, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
