package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
)

// NewHandler initializes a new account administration API handler, it expects auth.RequireAdmin in front
func NewHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", listHandler(l, s))
	r.Post("/", createHandler(l, s))
	r.Delete("/{id}", deleteHandler(l, s))
	r.Put("/{id}/password", passwordHandler(l, s))
	r.Post("/{id}/send-reset", sendResetHandler(l, s))

	return r
}

func listHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.List(r.Context())
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

func createHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Input
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		u, err := s.Create(r.Context(), in)
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, u)
	}
}

func deleteHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
			writeError(l, w, err)
			return
		}
		httpx.Message(w, "User deleted")
	}
}

func passwordHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		var in struct {
			Password string `json:"password"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := s.SetPassword(r.Context(), id, in.Password); err != nil {
			writeError(l, w, err)
			return
		}
		httpx.Message(w, "Password updated")
	}
}

func sendResetHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.SendReset(r.Context(), id); err != nil {
			writeError(l, w, err)
			return
		}
		httpx.Message(w, "Reset link sent")
	}
}

func writeError(l log.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfDelete), errors.Is(err, ErrInvalidRole):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, notification.ErrNotConfigured):
		httpx.Error(w, http.StatusServiceUnavailable, "Email is not configured")
	default:
		auth.WriteError(l, w, err)
	}
}
