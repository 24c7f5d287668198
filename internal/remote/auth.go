package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/drillvoice/recipe-tracker-sub001/internal/errors"
)

// Session describes an authenticated (or anonymous) user session.
type Session struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	IsAnonymous bool   `json:"isAnonymous"`
	Token       string `json:"token,omitempty"`
}

// AuthClient wraps the auth provider's sign-in and sign-out calls. It
// contains no synchronization logic of its own.
type AuthClient struct {
	config     *Config
	httpClient *http.Client
}

// NewAuthClient creates a new AuthClient.
func NewAuthClient(config *Config) *AuthClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &AuthClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SignInEmail exchanges email/password credentials for a session.
func (a *AuthClient) SignInEmail(ctx context.Context, email, password string) (*Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.BaseURL+"/v1/auth/signin", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.config.APIKey != "" {
		req.Header.Set("X-Api-Key", a.config.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAuthFailed, "sign-in request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrAuthFailed,
			fmt.Sprintf("sign-in rejected with status %d", resp.StatusCode))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAuthFailed, "failed to parse sign-in response", err)
	}
	return &session, nil
}

// SignOutUser invalidates the current session token. A transport failure is
// reported but never blocks local sign-out.
func (a *AuthClient) SignOutUser(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.config.BaseURL+"/v1/auth/signout", nil)
	if err != nil {
		return err
	}
	if a.config.APIKey != "" {
		req.Header.Set("X-Api-Key", a.config.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrAuthFailed, "sign-out request failed", err)
	}
	resp.Body.Close()
	return nil
}
