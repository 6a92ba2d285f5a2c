package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/account"
	auth "github.com/collegify/collegify/internal/auth/middleware"
	"github.com/collegify/collegify/internal/college"
	"github.com/collegify/collegify/internal/db"
	"github.com/collegify/collegify/internal/httpx"
	"github.com/collegify/collegify/internal/logging"
	"github.com/collegify/collegify/internal/quiz"
	"github.com/collegify/collegify/internal/rbac"
	"github.com/collegify/collegify/internal/storage"
)

// Deps is everything the API needs. Log may be nil.
type Deps struct {
	DB          *sql.DB
	Driver      db.Driver
	Auth        *auth.AuthService
	Accounts    *account.Service
	Colleges    college.Store
	Results     quiz.ResultStore
	Sessions    *quiz.SessionManager
	Blobs       storage.BlobStore
	CORSOrigins []string
	Log         *zap.Logger
}

// NewRouter mounts the whole API under /api.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(log), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	bearer := auth.JWTMiddleware(d.Auth)
	// the stored role wins over the one in the token
	withRole := auth.AttachRoleFromDB(d.DB, d.Driver, log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]string{"status": "OK", "message": "Collegify API is running"})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", RegisterHandler(d.Accounts, d.Auth, log))
			r.Post("/login", LoginHandler(d.Accounts, d.Auth, log))
			r.With(bearer).Get("/verify", VerifyHandler(d.Accounts, log))
		})

		r.Route("/colleges", func(r chi.Router) {
			r.Get("/", ListCollegesHandler(d.Colleges, log))
			r.Get("/{id}", GetCollegeHandler(d.Colleges, log))
			r.Post("/search", SearchCollegesHandler(d.Colleges, log))
			r.Post("/match", MatchCollegesHandler(d.Colleges, log))

			r.Group(func(r chi.Router) {
				r.Use(bearer, withRole, rbac.Require(rbac.PermCollegeWrite))
				r.Post("/", CreateCollegeHandler(d.Colleges, log))
				r.Put("/{id}", UpdateCollegeHandler(d.Colleges, log))
				r.Delete("/{id}", DeleteCollegeHandler(d.Colleges, log))
				r.Post("/{id}/images", UploadCollegeImageHandler(d.Colleges, d.Blobs, log))
			})
		})

		r.Route("/assets", func(r chi.Router) {
			MountAssets(r, d.Blobs)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(bearer, withRole)
			r.Get("/profile", GetProfileHandler(d.Accounts, log))
			r.With(rbac.Require(rbac.PermProfileEdit)).Put("/profile", UpdateProfileHandler(d.Accounts, log))
		})

		r.Route("/quiz", func(r chi.Router) {
			r.Get("/questions", QuestionsHandler())
			r.Post("/score", ScoreHandler())

			r.Group(func(r chi.Router) {
				r.Use(bearer, withRole)
				r.With(rbac.Require(rbac.PermQuizTake)).Post("/submit", SubmitQuizHandler(d.Results, log))
				r.With(rbac.Require(rbac.PermQuizResults)).Get("/results", QuizResultsHandler(d.Results, log))

				r.Route("/sessions", func(r chi.Router) {
					r.Use(rbac.Require(rbac.PermQuizTake))
					r.Post("/", StartSessionHandler(d.Sessions))
					r.Get("/{id}", GetSessionHandler(d.Sessions))
					r.Put("/{id}/answer", AnswerSessionHandler(d.Sessions))
					r.Post("/{id}/next", MoveSessionHandler(d.Sessions.Next))
					r.Post("/{id}/prev", MoveSessionHandler(d.Sessions.Prev))
					r.Post("/{id}/submit", SubmitSessionHandler(d.Sessions))
				})
			})
		})
	})

	return r
}
