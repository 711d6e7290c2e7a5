package userclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type AccountField string

const (
	AccountUsername AccountField = "USERNAME"
	AccountEmail    AccountField = "EMAIL"
)

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Language  string `json:"language,omitempty"`
	BirthDate string `json:"birthDate,omitempty"`
}

// Registration is a pending sign-up waiting for its one-time code.
type Registration struct {
	UUID        string `json:"uuid"`
	SecondsLeft int    `json:"secondsLeft"`
}

type UserInfo struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Language  string `json:"language"`
	BirthDate string `json:"birthDate,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

var errNoToken = errors.New("service returned no token")

func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, error) {
	var payload tokenResponse
	body := map[string]string{"username": strings.TrimSpace(username), "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errNoToken
	}
	return payload.Token, nil
}

func (c *HTTPClient) Register(ctx context.Context, req RegisterRequest) (Registration, error) {
	var payload Registration
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &payload); err != nil {
		return Registration{}, err
	}
	return payload, nil
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, uuid, otp string) (string, error) {
	var payload tokenResponse
	body := map[string]string{"uuid": strings.TrimSpace(uuid), "otp": strings.TrimSpace(otp)}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify", body, &payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", errNoToken
	}
	return payload.Token, nil
}

func (c *HTTPClient) VerifyStatus(ctx context.Context, uuid string) (Registration, error) {
	var payload Registration
	path := "/auth/" + url.PathEscape(strings.TrimSpace(uuid)) + "/verify"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return Registration{}, err
	}
	return payload, nil
}

// ContainsAccount reports whether a username or email is already taken.
func (c *HTTPClient) ContainsAccount(ctx context.Context, field AccountField, account string) (bool, error) {
	query := url.Values{}
	query.Set("accountField", string(field))
	var taken bool
	body := map[string]string{"account": strings.TrimSpace(account)}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/account/contains?"+query.Encode(), body, &taken); err != nil {
		return false, err
	}
	return taken, nil
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (UserInfo, error) {
	var info UserInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/current-user/info", nil, &info); err != nil {
		return UserInfo{}, err
	}
	return info, nil
}

// FileTokenStore keeps the bearer token in a file so it survives restarts.
type FileTokenStore struct {
	path string

	mu     sync.Mutex
	token  string
	loaded bool
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Token returns the stored token, or "" when none is stored.
func (s *FileTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.loaded = true
		if s.path != "" {
			if raw, err := os.ReadFile(s.path); err == nil {
				s.token = strings.TrimSpace(string(raw))
			}
		}
	}
	return s.token
}

func (s *FileTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.loaded = strings.TrimSpace(token), true
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(s.token+"\n"), 0o600)
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.loaded = "", true
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
