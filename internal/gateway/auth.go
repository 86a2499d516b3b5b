package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spendwise-dev/spendwise/internal/id"
)

// ErrNoToken is returned when an auth response carries no token.
var ErrNoToken = errors.New("no token received from server")

// Credentials log an existing user in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration creates a new user.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// User identifies the signed-in account holder.
type User struct {
	ID        string `json:"id" yaml:"id"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`
}

// AuthResult is a successful login or registration.
type AuthResult struct {
	Token string
	User  User
}

type wireUser struct {
	ID        id.Flex `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
}

func (w wireUser) user() User {
	return User{ID: w.ID.String(), Email: w.Email, FirstName: w.FirstName, LastName: w.LastName}
}

type wireAuth struct {
	Token       string    `json:"token"`
	AccessToken string    `json:"accessToken"`
	User        *wireUser `json:"user"`
	wireUser
}

func decodeAuth(raw []byte) (AuthResult, error) {
	var w wireAuth
	if err := json.Unmarshal(unwrapOne(raw), &w); err != nil {
		return AuthResult{}, fmt.Errorf("decoding auth response: %w", err)
	}
	res := AuthResult{Token: w.Token, User: w.wireUser.user()}
	if res.Token == "" {
		res.Token = w.AccessToken
	}
	if w.User != nil {
		res.User = w.User.user()
	}
	if res.Token == "" {
		return AuthResult{}, ErrNoToken
	}
	return res, nil
}

// Login exchanges credentials for a token. A 401 here never counts as
// session expiry.
func (c *Client) Login(ctx context.Context, creds Credentials) (AuthResult, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds)
	if err != nil {
		return AuthResult{}, fmt.Errorf("login: %w", err)
	}
	return decodeAuth(raw)
}

// Register creates a user and signs them in.
func (c *Client) Register(ctx context.Context, reg Registration) (AuthResult, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/register", nil, reg)
	if err != nil {
		return AuthResult{}, fmt.Errorf("register: %w", err)
	}
	return decodeAuth(raw)
}

// ValidateToken asks the backend whether the current token is still good.
func (c *Client) ValidateToken(ctx context.Context) (User, error) {
	raw, err := c.do(ctx, http.MethodGet, "/auth/validate", nil, nil)
	if err != nil {
		return User{}, fmt.Errorf("validating token: %w", err)
	}
	body := unwrapOne(raw)
	if len(body) == 0 || body[0] != '{' {
		return User{}, nil
	}
	var w struct {
		User *wireUser `json:"user"`
		wireUser
	}
	if err := json.Unmarshal(body, &w); err != nil {
		return User{}, fmt.Errorf("decoding validate response: %w", err)
	}
	if w.User != nil {
		return w.User.user(), nil
	}
	return w.wireUser.user(), nil
}
