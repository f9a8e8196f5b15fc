package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

// NewHandler initializes a new profile API handler, it expects auth.Middleware in front
func NewHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", getHandler(l, s))
	r.Put("/", updateHandler(l, s))

	return r
}

func getHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.Get(r.Context(), auth.UserID(r.Context()))
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, u)
	}
}

func updateHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Input
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		u, err := s.Update(r.Context(), auth.UserID(r.Context()), in)
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, u)
	}
}

func writeError(l log.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingName):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "User not found")
	default:
		level.Error(l).Log("err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
