package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/jobflick/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubValidator struct {
	userID uuid.UUID
	role   string
	err    error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, string, error) {
	return s.userID, s.role, s.err
}

// okHandler writes 200 and the principal's user ID (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromCtx(r.Context())
	if p != nil {
		_, _ = w.Write([]byte(p.UserID.String()))
	}
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRequireAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	mw := RequireAuth(&stubValidator{userID: userID, role: models.RoleMember})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()

	mw(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != userID.String() {
		t.Errorf("principal in context: got %q, want %q", got, userID)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	mw := RequireAuth(&stubValidator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	rec := httptest.NewRecorder()

	mw(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	mw := RequireAuth(&stubValidator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	mw(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	mw := RequireAuth(&stubValidator{err: errors.New("token expired")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()

	mw(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestRequireStaff(t *testing.T) {
	cases := []struct {
		name string
		role string
		want int
	}{
		{"staff allowed", models.RoleStaff, http.StatusOK},
		{"member forbidden", models.RoleMember, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := RequireAuth(&stubValidator{userID: uuid.New(), role: tc.role})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/overview", nil)
			req.Header.Set("Authorization", "Bearer sometoken")
			rec := httptest.NewRecorder()

			mw(RequireStaff(okHandler)).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Errorf("status: got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestRequireStaff_NoPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/overview", nil)
	rec := httptest.NewRecorder()

	RequireStaff(okHandler).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", rec.Code)
	}
}
