package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

// NewHandler initializes a new auth API handler
func NewHandler(l log.Logger, s Service, t *Tokens) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/register", registerHandler(l, s))
	r.Post("/login", loginHandler(l, s))
	r.Post("/forgot-password", forgotPasswordHandler(l, s))
	r.Post("/reset-password", resetPasswordHandler(l, s))

	r.Group(func(r chi.Router) {
		r.Use(Middleware(t))
		r.Get("/me", meHandler(l, s))
		r.Post("/logout", logoutHandler())
		r.Post("/change-password", changePasswordHandler(l, s))
	})

	return r
}

// WriteError maps account errors to responses, anything unknown is logged and hidden
func WriteError(l log.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httpx.Error(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrMissingName),
		errors.Is(err, ErrInvalidResetToken):
		httpx.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrEmailTaken):
		httpx.Error(w, http.StatusConflict, "Email is already registered")
	case errors.Is(err, user.ErrNotFound):
		httpx.Error(w, http.StatusNotFound, "User not found")
	default:
		level.Error(l).Log("err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func registerHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in RegisterInput
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		sess, err := s.Register(r.Context(), in)
		if err != nil {
			WriteError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, sess)
	}
}

func loginHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		sess, err := s.Login(r.Context(), in.Email, in.Password)
		if err != nil {
			WriteError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, sess)
	}
}

func meHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.Me(r.Context(), UserID(r.Context()))
		if err != nil {
			WriteError(l, w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, u)
	}
}

// Sessions are stateless, the client drops its token
func logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, "Logged out")
	}
}

func changePasswordHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := s.ChangePassword(r.Context(), UserID(r.Context()), in.CurrentPassword, in.NewPassword); err != nil {
			WriteError(l, w, err)
			return
		}
		httpx.Message(w, "Password updated")
	}
}

func forgotPasswordHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := s.ForgotPassword(r.Context(), in.Email); err != nil {
			WriteError(l, w, err)
			return
		}
		httpx.Message(w, "If the email is registered you will receive a reset link")
	}
}

func resetPasswordHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			httpx.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := s.ResetPassword(r.Context(), in.Token, in.Password); err != nil {
			WriteError(l, w, err)
			return
		}
		httpx.Message(w, "Password has been reset")
	}
}
