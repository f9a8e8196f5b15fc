package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

// DefaultVonageEndpoint is the Vonage SMS API
const DefaultVonageEndpoint = "https://rest.nexmo.com/sms/json"

type vonageRepository struct {
	l        log.Logger
	c        *http.Client
	endpoint string
	cfg      settings.Vonage
}

// NewVonageRepository initializes a new Vonage SMS notifier repository
func NewVonageRepository(l log.Logger, c *http.Client, endpoint string, cfg settings.Vonage) *vonageRepository {
	if endpoint == "" {
		endpoint = DefaultVonageEndpoint
	}
	return &vonageRepository{
		l:        l,
		c:        c,
		endpoint: endpoint,
		cfg:      cfg,
	}
}

func (s *vonageRepository) String() string {
	return "vonage"
}

type vonageResponse struct {
	MessageCount string `json:"message-count"`
	Messages     []struct {
		To        string `json:"to"`
		MessageID string `json:"message-id"`
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func (s *vonageRepository) Post(ctx context.Context, m Message) (string, error) {
	if !s.cfg.Configured() {
		return "", ErrNotConfigured
	}
	to := NormalizePhone(m.To)
	if to == "" {
		return "", errors.New("missing phone number")
	}
	form := url.Values{
		"api_key":    {s.cfg.APIKey},
		"api_secret": {s.cfg.APISecret},
		"from":       {s.cfg.From},
		"to":         {to},
		"text":       {m.Body},
		"type":       {"unicode"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "building vonage request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.c.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "sending sms")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		level.Error(s.l).Log("err", "unexpected status code from vonage", "status_code", resp.StatusCode)
		return "", errors.Errorf("unexpected status code from vonage: %d", resp.StatusCode)
	}

	var vr vonageResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return "", errors.Wrap(err, "decoding vonage response")
	}
	if len(vr.Messages) == 0 {
		return "", errors.New("vonage returned no messages")
	}
	msg := vr.Messages[0]
	if msg.Status != "0" {
		return "", errors.Errorf("vonage rejected message: %s (status %s)", msg.ErrorText, msg.Status)
	}
	level.Info(s.l).Log("msg", "sms successfully sent", "id", msg.MessageID, "to", to)
	return msg.MessageID, nil
}

// NormalizePhone strips everything but digits, Vonage expects the number in E.164 without the plus sign
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "00")
}
