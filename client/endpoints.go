package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-kit/log/level"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/profile"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/requests"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/users"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

// Health pings the backend
func (c *Client) Health(ctx context.Context) error {
	return c.Do(ctx, http.MethodGet, "/health", nil, nil)
}

// Register creates a client account and keeps its session
func (c *Client) Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error) {
	var s auth.Session
	if err := c.Do(ctx, http.MethodPost, "/auth/register", in, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	c.cache.Set(KeyUser, s.User)
	return &s, nil
}

// Login starts a session
func (c *Client) Login(ctx context.Context, email string, password string) (*auth.Session, error) {
	var s auth.Session
	in := map[string]string{"email": email, "password": password}
	if err := c.Do(ctx, http.MethodPost, "/auth/login", in, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	c.cache.Set(KeyUser, s.User)
	return &s, nil
}

// Logout ends the session. The local token and cache are dropped even when the server can't be reached.
func (c *Client) Logout(ctx context.Context) {
	if c.Token() != "" {
		if err := c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
			level.Debug(c.l).Log("msg", "logout request failed", "err", err)
		}
	}
	c.SetToken("")
	c.cache.Clear()
}

// Me returns the signed in user
func (c *Client) Me(ctx context.Context) (*user.User, error) {
	var u user.User
	if err := c.cachedGet(ctx, "/auth/me", KeyUser, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ChangePassword(ctx context.Context, current string, next string) error {
	in := map[string]string{"currentPassword": current, "newPassword": next}
	return c.Do(ctx, http.MethodPost, "/auth/change-password", in, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.Do(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token string, password string) error {
	in := map[string]string{"token": token, "password": password}
	return c.Do(ctx, http.MethodPost, "/auth/reset-password", in, nil)
}

// Profile returns the editable profile of the signed in user
func (c *Client) Profile(ctx context.Context) (*user.User, error) {
	var u user.User
	if err := c.cachedGet(ctx, "/profile", KeyProfile, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in profile.Input) (*user.User, error) {
	var u user.User
	if err := c.Do(ctx, http.MethodPut, "/profile", in, &u); err != nil {
		return nil, err
	}
	c.cache.Set(KeyProfile, u)
	return &u, nil
}

// ServiceRequests lists the requests of the signed in client
func (c *Client) ServiceRequests(ctx context.Context) ([]servicerequest.Request, error) {
	var list []servicerequest.Request
	if err := c.cachedGet(ctx, "/service-requests", KeyServiceRequests, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateServiceRequest(ctx context.Context, in requests.Input) (*servicerequest.Request, error) {
	var r servicerequest.Request
	if err := c.Do(ctx, http.MethodPost, "/service-requests", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// AdminServiceRequests lists every request with its client details
func (c *Client) AdminServiceRequests(ctx context.Context) ([]servicerequest.Request, error) {
	var list []servicerequest.Request
	if err := c.cachedGet(ctx, "/admin/service-requests", KeyAdminServiceRequests, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) UpdateServiceRequestStatus(ctx context.Context, id int64, status servicerequest.Status) (*servicerequest.Request, error) {
	var r servicerequest.Request
	path := fmt.Sprintf("/admin/service-requests/%d/status", id)
	if err := c.Do(ctx, http.MethodPut, path, map[string]servicerequest.Status{"status": status}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// AdminUsers lists every account
func (c *Client) AdminUsers(ctx context.Context) ([]user.User, error) {
	var list []user.User
	if err := c.cachedGet(ctx, "/admin/users", KeyAdminUsers, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateUser(ctx context.Context, in users.Input) (*user.User, error) {
	var u user.User
	if err := c.Do(ctx, http.MethodPost, "/admin/users", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/admin/users/%d", id), nil, nil)
}

func (c *Client) SetUserPassword(ctx context.Context, id int64, password string) error {
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/password", id), map[string]string{"password": password}, nil)
}

func (c *Client) SendUserReset(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/admin/users/%d/send-reset", id), nil, nil)
}

// ProviderConfig returns the masked provider settings
func (c *Client) ProviderConfig(ctx context.Context) (*settings.Config, error) {
	var cfg settings.Config
	if err := c.Do(ctx, http.MethodGet, "/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) UpdateVonage(ctx context.Context, v settings.Vonage) (*settings.Config, error) {
	var cfg settings.Config
	if err := c.Do(ctx, http.MethodPut, "/config/vonage", v, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) UpdateSMTP(ctx context.Context, m settings.SMTP) (*settings.Config, error) {
	var cfg settings.Config
	if err := c.Do(ctx, http.MethodPut, "/config/smtp", m, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) TestVonage(ctx context.Context, phone string) (dispatch.Result, error) {
	var r dispatch.Result
	err := c.Do(ctx, http.MethodPost, "/config/test-vonage", map[string]string{"phone": phone}, &r)
	return r, err
}

func (c *Client) TestSMTP(ctx context.Context, email string) (dispatch.Result, error) {
	var r dispatch.Result
	err := c.Do(ctx, http.MethodPost, "/config/test-smtp", map[string]string{"email": email}, &r)
	return r, err
}

// SendSMS sends a free text message
func (c *Client) SendSMS(ctx context.Context, to string, message string) (dispatch.Result, error) {
	var r dispatch.Result
	err := c.Do(ctx, http.MethodPost, "/sms/send", map[string]string{"to": to, "message": message}, &r)
	return r, err
}
