package client

import (
	"context"
	"net/http"

	"resumectl/internal/errors"
	"resumectl/internal/types"
)

// Login exchanges credentials for a JWT and stores it.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "email and password are required", err)
	}

	req, err := jsonRequest(http.MethodPost, "/authenticate", creds)
	if err != nil {
		return "", err
	}
	req.public = true

	resp, err := c.do(ctx, "login", req)
	if err != nil {
		if statusErr, ok := asStatusError(err); ok &&
			(statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden) {
			return "", errors.NewAuthError(errors.ErrCodeUnauthorized, "invalid email or password", err)
		}
		return "", failure(errors.ErrCodeRequestFailed, "login failed", err)
	}

	var token types.AuthToken
	if err := decode(resp, &token); err != nil {
		return "", err
	}
	if token.JWT == "" {
		return "", errors.NewAPIError(errors.ErrCodeInvalidResponse, "login response did not include a token", nil)
	}

	if err := c.tokens.Save(token.JWT); err != nil {
		return "", err
	}
	c.logger.Info("Logged in", "email", creds.Email)
	return token.JWT, nil
}

// Logout forgets the stored token. The API keeps no server-side session.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, reg types.Registration) (*types.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid registration", err)
	}

	req, err := jsonRequest(http.MethodPost, "/api/v1/users", reg)
	if err != nil {
		return nil, err
	}
	req.public = true

	resp, err := c.do(ctx, "register", req)
	if err != nil {
		return nil, failure(errors.ErrCodeRequestFailed, "registration failed", err)
	}

	var user types.User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the profile of the logged-in user.
func (c *Client) Me(ctx context.Context) (*types.User, error) {
	req, _ := jsonRequest(http.MethodGet, "/api/v1/users/me", nil)
	resp, err := c.do(ctx, "get_profile", req)
	if err != nil {
		return nil, failure(errors.ErrCodeFetchFailed, "failed to load profile", err)
	}

	var user types.User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the logged-in user's name and email.
func (c *Client) UpdateProfile(ctx context.Context, update types.ProfileUpdate) (*types.User, error) {
	if err := update.Validate(); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid profile", err)
	}

	req, err := jsonRequest(http.MethodPut, "/api/v1/users/me", update)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, "update_profile", req)
	if err != nil {
		return nil, failure(errors.ErrCodeSaveFailed, "failed to update profile", err)
	}

	var user types.User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
