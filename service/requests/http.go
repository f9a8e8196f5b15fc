package requests

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
)

// NewHandler initializes the client facing service request API, it expects auth.Middleware in front
func NewHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", listOwnHandler(l, s))
	r.Post("/", createHandler(l, s))

	return r
}

// NewAdminHandler initializes the admin service request API, it expects auth.RequireAdmin in front
func NewAdminHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", listAllHandler(l, s))
	r.Put("/{id}/status", statusHandler(l, s))

	return r
}

func listOwnHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ListOwn(r.Context(), auth.UserID(r.Context()))
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
		req, err := s.Create(r.Context(), auth.UserID(r.Context()), in)
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, req)
	}
}

func listAllHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.ListAll(r.Context())
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, list)
	}
}

func statusHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		var in struct {
			Status servicerequest.Status `json:"status"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req, err := s.SetStatus(r.Context(), id, in.Status)
		if err != nil {
			writeError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, req)
	}
}

func writeError(l log.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidServiceType), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrMissingLocation), errors.Is(err, ErrInvalidArea), errors.Is(err, ErrInvalidStatus):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, servicerequest.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "Service request not found")
	default:
		level.Error(l).Log("err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
