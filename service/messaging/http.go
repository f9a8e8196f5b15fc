package messaging

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
)

// NewSMSHandler initializes the SMS API handler, it expects auth.RequireAdmin in front
func NewSMSHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/send", sendSMSHandler(l, s))
	r.Post("/confirm-service", confirmHandler(l, s, ChannelSMS))
	r.Post("/complete-service", completeHandler(l, s, ChannelSMS))

	return r
}

// NewEmailHandler initializes the email API handler, it expects auth.RequireAdmin in front
func NewEmailHandler(l log.Logger, s Service) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/confirm-service", confirmHandler(l, s, ChannelEmail))
	r.Post("/complete-service", completeHandler(l, s, ChannelEmail))

	return r
}

func sendSMSHandler(l log.Logger, s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			To      string `json:"to"`
			Message string `json:"message"`
		}
		if err := httpx.Decode(w, r, &in); err != nil {
			writeResult(l, w, "", errors.Wrap(errBadBody, err.Error()))
			return
		}
		id, err := s.SendSMS(r.Context(), in.To, in.Message)
		writeResult(l, w, id, err)
	}
}

func confirmHandler(l log.Logger, s Service, ch Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p dispatch.ConfirmationParams
		if err := httpx.Decode(w, r, &p); err != nil {
			writeResult(l, w, "", errors.Wrap(errBadBody, err.Error()))
			return
		}
		id, err := s.ConfirmService(r.Context(), ch, p)
		writeResult(l, w, id, err)
	}
}

func completeHandler(l log.Logger, s Service, ch Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p dispatch.CompletionParams
		if err := httpx.Decode(w, r, &p); err != nil {
			writeResult(l, w, "", errors.Wrap(errBadBody, err.Error()))
			return
		}
		id, err := s.CompleteService(r.Context(), ch, p)
		writeResult(l, w, id, err)
	}
}

var errBadBody = errors.New("invalid request body")

// writeResult answers in the dispatch.Result shape the panel expects on both success and failure
func writeResult(l log.Logger, w http.ResponseWriter, id string, err error) {
	if err == nil {
		httpx.JSON(w, http.StatusOK, dispatch.Result{Success: true, MessageID: id})
		return
	}
	status, msg := http.StatusBadGateway, "Failed to send notification"
	switch {
	case errors.Is(err, errBadBody):
		status, msg = http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, ErrMissingRecipient), errors.Is(err, ErrMissingMessage):
		status, msg = http.StatusBadRequest, errors.Cause(err).Error()
	case errors.Is(err, notification.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, "Notification provider is not configured"
	default:
		level.Error(l).Log("msg", "error sending notification", "err", err)
	}
	httpx.JSON(w, status, dispatch.Result{Success: false, Error: msg})
}
