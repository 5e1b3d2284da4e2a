package httpkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pestcontrol_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type jwtCfg struct{ secret string }

func (c jwtCfg) GetJWTAccessSecret() string { return c.secret }

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHandleErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", apperr.NotFound("report not found"), http.StatusNotFound, "report not found"},
		{"wrapped conflict", fmt.Errorf("op: %w", apperr.Conflict("draft exists")), http.StatusConflict, "draft exists"},
		{"forbidden", apperr.Forbidden("report is approved"), http.StatusForbidden, "report is approved"},
		{"untyped", errors.New("pgx: connection reset"), http.StatusInternalServerError, "internal server error"},
		{"internal kind", apperr.Internal("db exploded"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			HandleError(c, tc.err)

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, body.Error)
			}
		})
	}
}

func TestAuthRequiredAndRequireRole(t *testing.T) {
	cfg := jwtCfg{secret: "test-secret"}
	r := gin.New()
	r.GET("/admin", AuthRequired(cfg), RequireRole(RoleAdmin), func(c *gin.Context) {
		id := MustGetIdentity(c)
		c.String(http.StatusOK, id.UserID().String())
	})

	adminToken := signToken(t, cfg.secret, jwt.MapClaims{
		"sub":   "7b0e3f5c-9c1d-4d35-8a43-1f6e5f7d2a10",
		"type":  "access",
		"roles": []string{RoleAdmin},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	pcoToken := signToken(t, cfg.secret, jwt.MapClaims{
		"sub":   "7b0e3f5c-9c1d-4d35-8a43-1f6e5f7d2a11",
		"type":  "access",
		"roles": []string{RolePCO},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	refreshToken := signToken(t, cfg.secret, jwt.MapClaims{
		"sub":  "7b0e3f5c-9c1d-4d35-8a43-1f6e5f7d2a10",
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refreshToken, http.StatusUnauthorized},
		{"wrong role", "Bearer " + pcoToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
		})
	}
}

func TestBindJSONRejectsMalformedBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"client_id":`))
	c.Request.Header.Set("Content-Type", "application/json")

	var dst struct {
		ClientID string `json:"client_id"`
	}
	if BindJSON(c, &dst) {
		t.Fatal("expected malformed body to be rejected")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != MsgInvalidRequest {
		t.Fatalf("expected %q, got %q", MsgInvalidRequest, body.Error)
	}
}
