// Package identity wraps the external identity provider's REST API for
// credential verification and account creation.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clipscribe/internal/config"
)

// ErrInvalidCredentials is the single error returned for every sign-in the
// provider rejects. Unknown accounts and wrong passwords are deliberately
// indistinguishable so callers cannot probe for registered emails.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ProviderError carries the provider's own message for non-sign-in failures
// such as duplicate emails or weak passwords.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string { return e.Message }

// SignInResult is the provider's answer to a successful credential check.
type SignInResult struct {
	Email   string
	IDToken string
}

// Client talks to an identitytoolkit-style provider. One provider call per
// request, no retries; the injected http.Client bounds each call.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient builds a Client from config. A zero timeout defaults to 10s.
func NewClient(cfg config.IdentityConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type credentialPayload struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// SignIn verifies the credentials with the provider. Callers must validate
// that email and password are non-empty before reaching the network.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	var body struct {
		Email   string `json:"email"`
		IDToken string `json:"idToken"`
	}
	status, err := c.post(ctx, "accounts:signInWithPassword", credentialPayload{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("identity request: %w", err)
	}
	if status != http.StatusOK {
		return nil, ErrInvalidCredentials
	}
	if body.IDToken == "" {
		return nil, fmt.Errorf("identity response missing token")
	}
	return &SignInResult{Email: body.Email, IDToken: body.IDToken}, nil
}

// SignUp creates an account and returns the provider-issued uid. Provider
// rejections surface their message verbatim as a *ProviderError.
func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	raw := json.RawMessage{}
	status, err := c.post(ctx, "accounts:signUp", credentialPayload{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &raw)
	if err != nil {
		return "", fmt.Errorf("identity request: %w", err)
	}
	if status != http.StatusOK {
		return "", &ProviderError{StatusCode: status, Message: providerMessage(raw)}
	}
	var body struct {
		LocalID string `json:"localId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.LocalID == "" {
		return "", fmt.Errorf("identity response missing uid")
	}
	return body.LocalID, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) (int, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode == http.StatusOK {
		return 0, fmt.Errorf("decode identity response: %w", err)
	}
	return resp.StatusCode, nil
}

// providerMessage digs the human-readable message out of an identitytoolkit
// error body, falling back to a generic one.
func providerMessage(raw json.RawMessage) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return "account creation failed"
}
