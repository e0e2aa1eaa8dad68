package handlers

import (
	"context"
	"net/http"

	"github.com/diagnosis/accounts-api/internal/apperr"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/http/middleware"
	"github.com/diagnosis/accounts-api/internal/http/response"
	"github.com/diagnosis/accounts-api/internal/service"
	"github.com/go-chi/chi/v5"
)

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type Handlers struct {
	users          service.UserService
	files          service.FileService
	tokens         middleware.TokenVerifier
	finder         middleware.UserFinder
	auth           middleware.AuthOptions
	uploadMaxBytes int64
	checks         map[string]Checker
}

type Options struct {
	RequireVerified bool
	UploadMaxBytes  int64
	// Checks are probed by /readyz, keyed by dependency name.
	Checks map[string]Checker
}

func New(
	users service.UserService,
	files service.FileService,
	tokens middleware.TokenVerifier,
	finder middleware.UserFinder,
	opts Options,
) *Handlers {
	if opts.UploadMaxBytes <= 0 {
		opts.UploadMaxBytes = 10 << 20
	}
	return &Handlers{
		users:          users,
		files:          files,
		tokens:         tokens,
		finder:         finder,
		auth:           middleware.AuthOptions{RequireVerified: opts.RequireVerified},
		uploadMaxBytes: opts.UploadMaxBytes,
		checks:         opts.Checks,
	}
}

// Routes mounts the public and authenticated endpoints.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/readyz", h.Ready)
	r.Post("/login", handle(h.Login))
	r.Post("/register", handle(h.Register))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(h.tokens, h.finder, h.auth))

		r.Get("/me", handle(h.GetMe))
		r.Patch("/me", handle(h.UpdateMe))
		r.Delete("/me", handle(h.DeleteMe))
		r.Patch("/me/password", handle(h.ChangePassword))
		r.Get("/users/{id}", handle(h.GetUserByID))

		r.Route("/files", func(r chi.Router) {
			r.Get("/", handle(h.ListFiles))
			r.Post("/", handle(h.SaveFile))
			r.Post("/presign", handle(h.PresignUpload))
			r.Post("/upload", handle(h.UploadFile))
		})
	})

	return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle funnels every handler error through the response translator.
func handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			response.Error(w, r, err)
		}
	}
}

func currentUser(r *http.Request) (*domain.User, error) {
	u, ok := middleware.CurrentUser(r.Context())
	if !ok {
		return nil, apperr.Unauthorized("User not authenticated")
	}
	return u, nil
}
