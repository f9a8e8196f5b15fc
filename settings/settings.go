// Package settings holds the outbound provider credentials administrators configure
// from the panel.
package settings

import (
	"context"
	"strconv"
)

const (
	keyVonage = "vonage"
	keySMTP   = "smtp"
	mask      = "********"
)

// Vonage holds the SMS gateway credentials
type Vonage struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	From      string `json:"from"`
	Enabled   bool   `json:"enabled"`
}

// Configured reports whether enough is set to send an SMS
func (v Vonage) Configured() bool {
	return v.Enabled && v.APIKey != "" && v.APISecret != "" && v.From != ""
}

// SMTP holds the mail relay credentials. Secure selects implicit TLS instead of STARTTLS.
type SMTP struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	Secure    bool   `json:"secure"`
	Enabled   bool   `json:"enabled"`
}

// Configured reports whether enough is set to send an email
func (s SMTP) Configured() bool {
	return s.Enabled && s.Host != "" && s.Port > 0 && s.FromEmail != ""
}

// Addr is the host:port of the relay
func (s SMTP) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Config is the full provider configuration
type Config struct {
	Vonage Vonage `json:"vonage"`
	SMTP   SMTP   `json:"smtp"`
}

// Masked returns a copy safe to hand to the panel, secrets replaced by a placeholder
func (c Config) Masked() Config {
	if c.Vonage.APISecret != "" {
		c.Vonage.APISecret = mask
	}
	if c.SMTP.Password != "" {
		c.SMTP.Password = mask
	}
	return c
}

// Repository is an interface for the persisted provider settings
type Repository interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Put(ctx context.Context, key string, value interface{}) error
}
