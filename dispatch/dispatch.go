// Package dispatch sends the SMS and email notification pair for a service request
// lifecycle event and reports how each channel fared.
package dispatch

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

// Backend endpoints, relative to the API root, that send the templated notifications
const (
	// PathSMSConfirm texts the client that the booking is confirmed
	PathSMSConfirm = "/sms/confirm-service"
	// PathSMSComplete texts the client that the service is done
	PathSMSComplete = "/sms/complete-service"
	// PathEmailConfirm emails the booking confirmation
	PathEmailConfirm = "/email/confirm-service"
	// PathEmailComplete emails the completion notice
	PathEmailComplete = "/email/complete-service"
)

// Poster sends a JSON body to a backend path and decodes the JSON answer into out
type Poster interface {
	Post(ctx context.Context, path string, in interface{}, out interface{}) error
}

// Result is the outcome of one channel
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Outcome pairs the results of both channels
type Outcome struct {
	SMS   Result `json:"sms"`
	Email Result `json:"email"`
}

// Success reports whether the client was reached on at least one channel
func (o Outcome) Success() bool {
	return o.SMS.Success || o.Email.Success
}

// BothFailed reports whether neither channel delivered
func (o Outcome) BothFailed() bool {
	return !o.Success()
}

// ConfirmationParams describe a confirmed service booking
type ConfirmationParams struct {
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ClientName  string `json:"clientName"`
	ServiceName string `json:"serviceName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Area        string `json:"area,omitempty"`
	Language    string `json:"language"`
}

// CompletionParams describe a finished service
type CompletionParams struct {
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	ClientName  string `json:"clientName"`
	ServiceName string `json:"serviceName"`
	Language    string `json:"language"`
}

// Service fans a notification out to both channels
type Service struct {
	l log.Logger
	p Poster
}

// NewService initializes a dispatch service posting through p
func NewService(l log.Logger, p Poster) *Service {
	return &Service{
		l: l,
		p: p,
	}
}

// SendConfirmation notifies the client that the booking was confirmed
func (s *Service) SendConfirmation(ctx context.Context, params ConfirmationParams) Outcome {
	return s.send(ctx, "confirmation", PathSMSConfirm, PathEmailConfirm, params)
}

// SendCompletion notifies the client that the service was carried out
func (s *Service) SendCompletion(ctx context.Context, params CompletionParams) Outcome {
	return s.send(ctx, "completion", PathSMSComplete, PathEmailComplete, params)
}

func (s *Service) send(ctx context.Context, event string, smsPath string, emailPath string, params interface{}) Outcome {
	var o Outcome
	// a plain group, one channel failing must not cancel the other
	var g errgroup.Group
	g.Go(func() error {
		o.SMS = s.post(ctx, smsPath, params)
		return nil
	})
	g.Go(func() error {
		o.Email = s.post(ctx, emailPath, params)
		return nil
	})
	g.Wait()

	if o.BothFailed() {
		level.Error(s.l).Log("msg", "notification failed on both channels", "event", event, "sms_err", o.SMS.Error, "email_err", o.Email.Error)
	} else {
		level.Info(s.l).Log("msg", "notification dispatched", "event", event, "sms", o.SMS.Success, "email", o.Email.Success)
	}
	return o
}

func (s *Service) post(ctx context.Context, path string, params interface{}) Result {
	var r Result
	if err := s.p.Post(ctx, path, params, &r); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if !r.Success && r.Error == "" {
		r.Error = "notification was not accepted"
	}
	return r
}
