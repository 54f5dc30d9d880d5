package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aaronwang/auction-client/shared/models"
)

// AuthResult is a successful login or registration
type AuthResult struct {
	Token string
	User  models.User
}

// authResponse covers the token and user layouts the auth backend uses
type authResponse struct {
	Token       string       `json:"token"`
	AccessToken string       `json:"accessToken"`
	JWT         string       `json:"jwt"`
	User        *models.User `json:"user"`
	Data        *struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	} `json:"data"`
}

func (r *authResponse) token() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.AccessToken != "":
		return r.AccessToken
	case r.JWT != "":
		return r.JWT
	case r.Data != nil:
		return r.Data.Token
	}
	return ""
}

func (r *authResponse) user() *models.User {
	if r.User != nil {
		return r.User
	}
	if r.Data != nil && r.Data.User != nil {
		return r.Data.User
	}
	return nil
}

// Login authenticates with username and password
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", &models.Credentials{Username: username, Password: password})
}

// Register creates an account and returns its session
func (c *Client) Register(ctx context.Context, creds *models.Credentials) (*AuthResult, error) {
	return c.authenticate(ctx, "/auth/register", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds *models.Credentials) (*AuthResult, error) {
	body, err := c.send(ctx, request{method: http.MethodPost, path: path, body: creds})
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response for POST %s: %w", path, err)
	}

	result := &AuthResult{
		Token: resp.token(),
		User:  models.User{Username: creds.Username},
	}
	if u := resp.user(); u != nil {
		result.User = *u
	}
	if result.User.Username == "" {
		result.User.Username = creds.Username
	}
	return result, nil
}

// Verify checks the current token and returns its user. An invalid token
// yields an error matching ErrUnauthorized.
func (c *Client) Verify(ctx context.Context) (*models.User, error) {
	body, err := c.send(ctx, request{method: http.MethodGet, path: "/auth/verify", auth: true})
	if err != nil {
		return nil, err
	}

	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response for GET /auth/verify: %w", err)
	}
	if u := resp.user(); u != nil {
		return u, nil
	}

	// Some backends return the user as the whole body
	var user models.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user for GET /auth/verify: %w", err)
	}
	return &user, nil
}

// UpdateProfile changes the email and, when set, the password
func (c *Client) UpdateProfile(ctx context.Context, update *models.ProfileUpdate) error {
	_, err := c.call(ctx, request{
		method: http.MethodPut,
		path:   "/auth/update-profile",
		body:   update,
		auth:   true,
	})
	return err
}
