package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/account"
	auth "github.com/collegify/collegify/internal/auth/middleware"
	"github.com/collegify/collegify/internal/httpx"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    account.User `json:"user"`
}

func RegisterHandler(accounts *account.Service, authSvc *auth.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decode(w, r, &req) {
			return
		}
		u, err := accounts.Register(r.Context(), req.Name, req.Email, req.Password)
		if errors.Is(err, account.ErrEmailTaken) {
			httpx.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		if err != nil {
			serverError(w, log, "registration failed", err)
			return
		}
		tok, err := authSvc.IssueJWT(auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role})
		if err != nil {
			serverError(w, log, "issue token", err)
			return
		}
		httpx.JSON(w, http.StatusCreated, authResponse{Message: "User registered successfully", Token: tok, User: u})
	}
}

func LoginHandler(accounts *account.Service, authSvc *auth.AuthService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decode(w, r, &req) {
			return
		}
		u, err := accounts.Login(r.Context(), req.Email, req.Password)
		if errors.Is(err, account.ErrInvalidCredentials) {
			httpx.Error(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		if err != nil {
			serverError(w, log, "login failed", err)
			return
		}
		tok, err := authSvc.IssueJWT(auth.Identity{ID: u.ID, Email: u.Email, Role: u.Role})
		if err != nil {
			serverError(w, log, "issue token", err)
			return
		}
		httpx.JSON(w, http.StatusOK, authResponse{Message: "Login successful", Token: tok, User: u})
	}
}

// VerifyHandler returns the stored user behind a valid token.
func VerifyHandler(accounts *account.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := accounts.Get(r.Context(), auth.SubjectFromContext(r.Context()))
		if errors.Is(err, account.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			serverError(w, log, "verify failed", err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"user": u})
	}
}
