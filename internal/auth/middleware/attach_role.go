package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/db"
	"github.com/collegify/collegify/internal/httpx"
	"github.com/collegify/collegify/internal/rbac"
)

// AttachRoleFromDB replaces the role claimed by the token with the one stored
// for the user, so a demoted admin loses access before the token expires.
// Tokens for deleted users are rejected.
func AttachRoleFromDB(h *sql.DB, driver db.Driver, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := IdentityFromContext(ctx)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "Access token required")
				return
			}

			var role string
			err := h.QueryRowContext(ctx, db.Rebind(driver, `SELECT role FROM users WHERE id=$1`), id.ID).Scan(&role)
			switch {
			case err == nil:
				id.Role = role
				ctx = WithIdentity(ctx, id)
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, sql.ErrNoRows):
				httpx.Error(w, http.StatusUnauthorized, "User not found")
			default:
				log.Error("role lookup failed", zap.Int64("user_id", id.ID), zap.Error(err))
				httpx.Error(w, http.StatusInternalServerError, "Server error")
			}
		})
	}
}
