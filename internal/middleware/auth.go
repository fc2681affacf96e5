package middleware

import (
	"context"
	"net/http"
	"strings"

	"teleshop-backend/internal/auth"
	"teleshop-backend/internal/repositories"
)

type contextKey string

const StaffIDKey contextKey = "staff_id"
const UsernameKey contextKey = "username"
const IsAdminKey contextKey = "is_admin"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	staffRepo  *repositories.StaffRepository
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, staffRepo *repositories.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		staffRepo:  staffRepo,
	}
}

func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return nil, false
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return nil, false
	}

	// Re-read admin flag from the database so demotions apply immediately,
	// not at token expiry
	staff, err := m.staffRepo.GetByID(r.Context(), claims.StaffID)
	if err != nil || staff == nil {
		http.Error(w, "Staff not found", http.StatusUnauthorized)
		return nil, false
	}

	ctx := context.WithValue(r.Context(), StaffIDKey, staff.ID)
	ctx = context.WithValue(ctx, UsernameKey, staff.Username)
	ctx = context.WithValue(ctx, IsAdminKey, staff.IsAdmin)
	return r.WithContext(ctx), true
}

// Authenticate validates the JWT and loads the staff row into the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin additionally rejects non-admin staff
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		if isAdmin, _ := r.Context().Value(IsAdminKey).(bool); !isAdmin {
			http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStaffIDFromContext extracts the authenticated staff id
func GetStaffIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(StaffIDKey).(int)
	return id, ok
}

// GetUsernameFromContext extracts the authenticated username
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// IsAdminFromContext reports whether the authenticated staff is an admin
func IsAdminFromContext(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(IsAdminKey).(bool)
	return isAdmin
}
