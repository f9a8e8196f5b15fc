// Package client talks to the panel backend. Read endpoints fall back to the
// persistent cache while the network monitor reports the device offline.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
)

// TokenKey is the storage key of the session token, kept outside the cache namespace
const TokenKey = "auth_token"

// Cache keys of the read endpoints
const (
	KeyUser                 = "user"
	KeyProfile              = "profile"
	KeyServiceRequests      = "service_requests"
	KeyAdminServiceRequests = "admin_service_requests"
	KeyAdminUsers           = "admin_users"
)

// NetworkErrorMessage is the message of an Error caused by a transport failure
const NetworkErrorMessage = "Network error, check your connection"

// Error is returned for every failed request. StatusCode is 0 when the server was never reached.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusSource reports whether the device currently has network, network.Monitor implements it
type StatusSource interface {
	IsOnline() bool
}

// Client is a backend API client holding the session token
type Client struct {
	l      log.Logger
	hc     *http.Client
	base   string
	store  cache.Repository
	cache  *cache.Cache
	status StatusSource
}

// New initializes a client for the API rooted at baseURL, e.g. https://panel.example.com/api.
// The token is persisted in store, responses in c.
func New(l log.Logger, hc *http.Client, baseURL string, store cache.Repository, c *cache.Cache, status StatusSource) *Client {
	return &Client{
		l:      l,
		hc:     hc,
		base:   strings.TrimRight(baseURL, "/"),
		store:  store,
		cache:  c,
		status: status,
	}
}

// Token returns the persisted session token or ""
func (c *Client) Token() string {
	t, ok, err := c.store.Get(TokenKey)
	if err != nil {
		level.Error(c.l).Log("msg", "error reading session token", "err", err)
		return ""
	}
	if !ok {
		return ""
	}
	return t
}

// SetToken persists the session token, an empty token removes it
func (c *Client) SetToken(token string) {
	var err error
	if token == "" {
		err = c.store.Remove(TokenKey)
	} else {
		err = c.store.Set(TokenKey, token)
	}
	if err != nil {
		level.Error(c.l).Log("msg", "error storing session token", "err", err)
	}
}

// CachedAt returns when the cached copy of a read endpoint was stored
func (c *Client) CachedAt(key string) (time.Time, bool) {
	return c.cache.Timestamp(key)
}

// Do sends in as JSON and decodes the answer into out. Either may be nil.
func (c *Client) Do(ctx context.Context, method string, path string, in interface{}, out interface{}) error {
	raw, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	return decode(raw, out)
}

// Post implements dispatch.Poster
func (c *Client) Post(ctx context.Context, path string, in interface{}, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

// cachedGet applies the cache fallback: successful reads refresh the cache, failed reads
// are answered from it only while the device is offline.
func (c *Client) cachedGet(ctx context.Context, path string, key string, out interface{}) error {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err == nil {
		if err := decode(raw, out); err != nil {
			return err
		}
		c.cache.Set(key, json.RawMessage(raw))
		return nil
	}
	if c.status.IsOnline() {
		return err
	}
	if c.cache.Get(key, out) {
		level.Info(c.l).Log("msg", "offline, serving cached response", "key", key)
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method string, path string, in interface{}) ([]byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, &Error{Message: "Could not encode request", Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, &Error{Message: "Could not build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		level.Debug(c.l).Log("msg", "request failed", "method", method, "path", path, "err", err)
		return nil, &Error{Message: NetworkErrorMessage, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: NetworkErrorMessage, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp.StatusCode, raw)
	}
	return raw, nil
}

func responseError(status int, raw []byte) *Error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	e := &Error{StatusCode: status}
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Error != "":
			e.Message = body.Error
		case body.Message != "":
			e.Message = body.Message
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("Request failed with status %d", status)
	}
	return e
}

func decode(raw []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Message: "Invalid response from server", Err: err}
	}
	return nil
}
