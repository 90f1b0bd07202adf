// Package rest implements the provider.Client interface against the
// hosted backend's HTTP surface: password auth under /auth/v1 and
// filtered table access under /rest/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskpad/internal/config"
	"taskpad/internal/provider"
)

const (
	// APITimeout is the timeout for provider calls.
	APITimeout = 5 * time.Second

	authPath = "/auth/v1"
	restPath = "/rest/v1"
)

// Session is the provider-issued token bundle persisted between runs.
type Session struct {
	AccessToken  string            `json:"access_token"`
	TokenType    string            `json:"token_type,omitempty"`
	ExpiresIn    int64             `json:"expires_in,omitempty"`
	ExpiresAt    int64             `json:"expires_at,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	User         provider.Identity `json:"user"`
}

func (s *Session) expired() bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Unix() >= s.ExpiresAt
}

// Client talks to the hosted backend over HTTP. It persists the
// session to the config dir so identity survives between runs, and
// pushes SignedIn/SignedOut events to subscribers.
type Client struct {
	baseURL     string
	anonKey     string
	httpClient  *http.Client
	sessionPath string

	mu      sync.Mutex
	session *Session
	subs    map[int]func(provider.AuthEvent)
	nextSub int
}

// New creates a client from config. The base URL and anon key must be
// set; a persisted session is loaded if one exists.
func New(cfg *config.Config) (*Client, error) {
	if cfg.ProviderURL == "" || cfg.AnonKey == "" {
		return nil, fmt.Errorf("backend not configured: set %s and %s",
			config.EnvProviderURL, config.EnvAnonKey)
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.ProviderURL, "/"),
		anonKey:     cfg.AnonKey,
		httpClient:  &http.Client{},
		sessionPath: cfg.SessionPath(),
		subs:        make(map[int]func(provider.AuthEvent)),
	}

	if sess, err := loadSession(c.sessionPath); err == nil && sess != nil {
		c.session = sess
	}

	return c, nil
}

// BaseURL returns the provider base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// GetCurrentSession returns the restored identity if the persisted
// session is still usable, refreshing an expired access token when a
// refresh token is available. A session that cannot be refreshed is
// discarded, not reported as an error.
func (c *Client) GetCurrentSession(ctx context.Context) (*provider.Identity, error) {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}

	if sess.expired() {
		if sess.RefreshToken == "" {
			c.dropSession()
			return nil, nil
		}
		refreshed, err := c.refreshGrant(ctx, sess.RefreshToken)
		if err != nil {
			c.dropSession()
			return nil, nil
		}
		sess = refreshed
	}

	ident := sess.User
	return &ident, nil
}

// OnAuthStateChange registers a callback for auth events.
func (c *Client) OnAuthStateChange(fn func(provider.AuthEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// SignUpWithPassword creates credentials on the provider. When the
// provider issues a session immediately it is adopted and SignedIn is
// emitted; otherwise only the identity is returned (e.g. when email
// confirmation is pending).
func (c *Client) SignUpWithPassword(ctx context.Context, email, password string) (provider.Identity, error) {
	body, err := c.authRequest(ctx, "/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return provider.Identity{}, err
	}

	// The signup response is either a full session or a bare user record.
	var resp struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return provider.Identity{}, fmt.Errorf("decode signup response: %w", err)
	}

	if resp.AccessToken != "" {
		sess := resp.Session
		if err := c.adopt(&sess); err != nil {
			return provider.Identity{}, err
		}
		return sess.User, nil
	}
	if resp.ID == "" {
		return provider.Identity{}, &provider.AuthError{Message: "signup response missing user"}
	}
	return provider.Identity{ID: resp.ID, Email: resp.Email}, nil
}

// SignInWithPassword authenticates with the password grant.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (provider.Identity, error) {
	body, err := c.authRequest(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return provider.Identity{}, err
	}

	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return provider.Identity{}, fmt.Errorf("decode token response: %w", err)
	}
	if sess.AccessToken == "" {
		return provider.Identity{}, &provider.AuthError{Message: "token response missing access_token"}
	}
	if err := c.adopt(&sess); err != nil {
		return provider.Identity{}, err
	}
	return sess.User, nil
}

// SignOut invalidates the session on the provider, discards the
// persisted session, and emits SignedOut.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return nil
	}

	if _, err := c.authRequest(ctx, "/logout", nil); err != nil {
		return err
	}

	c.dropSession()
	c.emit(provider.AuthEvent{Type: provider.SignedOut})
	return nil
}

// AdoptTokens installs a token pair obtained outside the password
// flow (e.g. an OAuth code exchange) as the current session.
func (c *Client) AdoptTokens(accessToken, refreshToken string) error {
	sess := &Session{AccessToken: accessToken, RefreshToken: refreshToken}
	return c.adopt(sess)
}

// adopt completes, persists, and announces a new session.
func (c *Client) adopt(sess *Session) error {
	if err := fillFromClaims(sess); err != nil {
		return err
	}

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	if err := saveSession(c.sessionPath, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	ident := sess.User
	c.emit(provider.AuthEvent{Type: provider.SignedIn, Identity: &ident})
	return nil
}

// refreshGrant exchanges a refresh token for a fresh session.
func (c *Client) refreshGrant(ctx context.Context, refreshToken string) (*Session, error) {
	body, err := c.authRequest(ctx, "/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if sess.AccessToken == "" {
		return nil, &provider.AuthError{Message: "token response missing access_token"}
	}
	if err := fillFromClaims(&sess); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = &sess
	c.mu.Unlock()
	if err := saveSession(c.sessionPath, &sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return &sess, nil
}

func (c *Client) dropSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	_ = removeSession(c.sessionPath)
}

func (c *Client) emit(ev provider.AuthEvent) {
	c.mu.Lock()
	fns := make([]func(provider.AuthEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// authRequest posts a JSON body to an /auth/v1 endpoint.
func (c *Client) authRequest(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath+endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.AuthError{Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.AuthError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// setAuthHeaders attaches the anon key and the bearer token. The anon
// key doubles as the bearer for unauthenticated requests.
func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.anonKey)
	bearer := c.anonKey
	c.mu.Lock()
	if c.session != nil && c.session.AccessToken != "" {
		bearer = c.session.AccessToken
	}
	c.mu.Unlock()
	req.Header.Set("Authorization", "Bearer "+bearer)
}

// fillFromClaims backfills identity and expiry from the access token's
// claims when the provider response omitted them. The signature is not
// verified here; the provider re-checks it on every request.
func fillFromClaims(sess *Session) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(sess.AccessToken, claims); err != nil {
		return &provider.AuthError{Message: "malformed access token: " + err.Error()}
	}

	if sess.User.ID == "" {
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return &provider.AuthError{Message: "access token missing sub claim"}
		}
		sess.User.ID = sub
		if email, ok := claims["email"].(string); ok {
			sess.User.Email = email
		}
	}

	if sess.ExpiresAt == 0 {
		if sess.ExpiresIn > 0 {
			sess.ExpiresAt = time.Now().Unix() + sess.ExpiresIn
		} else if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			sess.ExpiresAt = exp.Unix()
		}
	}
	return nil
}

// errorMessage extracts a human-readable message from a provider error
// body, trying the known field names before falling back to the body.
func errorMessage(body []byte) string {
	var e struct {
		Message   string `json:"message"`
		Msg       string `json:"msg"`
		ErrorDesc string `json:"error_description"`
		Err       string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, m := range []string{e.Message, e.Msg, e.ErrorDesc, e.Err} {
			if m != "" {
				return m
			}
		}
	}
	if len(body) == 0 {
		return "request failed"
	}
	return string(body)
}

var _ provider.Client = (*Client)(nil)

var errNoSessionFile = errors.New("no session file")

func buildQuery(filters []provider.Filter, order *provider.Order) string {
	q := url.Values{}
	for _, f := range filters {
		q.Set(f.Column, "eq."+f.Value)
	}
	if order != nil {
		dir := ".asc"
		if order.Descending {
			dir = ".desc"
		}
		q.Set("order", order.Column+dir)
	}
	return q.Encode()
}
