package providers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

// NewHandler initializes a new provider settings API handler, it expects auth.RequireAdmin in front
func NewHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", configHandler(l, s))
	r.Put("/vonage", vonageHandler(l, s))
	r.Put("/smtp", smtpHandler(l, s))
	r.Post("/test-vonage", testVonageHandler(l, s))
	r.Post("/test-smtp", testSMTPHandler(l, s))

	return r
}

func configHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.Config(r.Context())
		if err != nil {
			level.Error(l).Log("err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		httpx.JSON(w, http.StatusOK, cfg)
	}
}

func vonageHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v settings.Vonage
		if err := httpx.Decode(w, r, &v); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		cfg, err := s.UpdateVonage(r.Context(), v)
		if err != nil {
			level.Error(l).Log("err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		httpx.JSON(w, http.StatusOK, cfg)
	}
}

func smtpHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m settings.SMTP
		if err := httpx.Decode(w, r, &m); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		cfg, err := s.UpdateSMTP(r.Context(), m)
		if errors.Is(err, ErrInvalidPort) {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			level.Error(l).Log("err", err)
			httpx.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		httpx.JSON(w, http.StatusOK, cfg)
	}
}

func testVonageHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Phone string `json:"phone"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id, err := s.TestVonage(r.Context(), in.Phone)
		writeTestResult(l, w, id, err)
	}
}

func testSMTPHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		id, err := s.TestSMTP(r.Context(), in.Email)
		writeTestResult(l, w, id, err)
	}
}

// A failed test send reports the provider error, the admin needs it to fix the credentials
func writeTestResult(l log.Logger, w http.ResponseWriter, id string, err error) {
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, dispatch.Result{Success: true, MessageID: id})
	case errors.Is(err, ErrMissingRecipient):
		httpx.JSON(w, http.StatusBadRequest, dispatch.Result{Error: err.Error()})
	case errors.Is(err, notification.ErrNotConfigured):
		httpx.JSON(w, http.StatusBadRequest, dispatch.Result{Error: "Provider is not configured or not enabled"})
	default:
		level.Error(l).Log("msg", "provider test failed", "err", err)
		httpx.JSON(w, http.StatusBadGateway, dispatch.Result{Error: err.Error()})
	}
}
