package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteVerifier asks the authentication service who owns a token. It calls
// GET {URL}/auth/v1/user with the token as bearer credential.
type RemoteVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteVerifier builds a verifier for the service described by the configuration.
func NewRemoteVerifier(cfg Config, client *http.Client) *RemoteVerifier {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteVerifier{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// userResponse is the part of the auth service's user document that we need.
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify implements Verifier.
func (v *RemoteVerifier) Verify(ctx context.Context, token string) (Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	res, err := v.client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("auth service request: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return Session{}, ErrUnauthenticated
	case res.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return Session{}, fmt.Errorf("auth service responded %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var user userResponse
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return Session{}, fmt.Errorf("decode auth service response: %w", err)
	}
	if user.ID == "" {
		return Session{}, ErrUnauthenticated
	}
	return Session{UserID: user.ID, Email: user.Email}, nil
}
