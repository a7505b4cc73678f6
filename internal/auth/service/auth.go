package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aptwise/aptwise/internal/auth/linkedin"
	"github.com/aptwise/aptwise/internal/auth/store"
	"github.com/aptwise/aptwise/internal/pkg/serr"
)

// tokenIssuer defines the interface for issuing session tokens; validation
// happens in the session middleware
type tokenIssuer interface {
	Issue(email string) (string, error)
}

// passwordHasher defines the interface for the one-way password transform
type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// oauthClient defines the interface for the LinkedIn OAuth handshake
type oauthClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	UserInfo(ctx context.Context, accessToken string) (linkedin.Profile, error)
}

// stateStore defines the interface for single-use anti-CSRF oauth states
type stateStore interface {
	Issue(ctx context.Context) (string, error)
	Redeem(ctx context.Context, state string) error
}

// Auth composes the user store, the password hasher, the token issuer and the
// LinkedIn client into the account and social-login operations.
type Auth struct {
	store    store.Store
	hasher   passwordHasher
	tokens   tokenIssuer
	linkedin oauthClient
	states   stateStore
}

// AuthOption defines a functional option for configuring the Auth service
type AuthOption func(*Auth) *Auth

func WithStore(st store.Store) AuthOption {
	return func(s *Auth) *Auth {
		s.store = st
		return s
	}
}

func WithHasher(h passwordHasher) AuthOption {
	return func(s *Auth) *Auth {
		s.hasher = h
		return s
	}
}

func WithTokens(iss tokenIssuer) AuthOption {
	return func(s *Auth) *Auth {
		s.tokens = iss
		return s
	}
}

func WithLinkedIn(c oauthClient) AuthOption {
	return func(s *Auth) *Auth {
		s.linkedin = c
		return s
	}
}

func WithStates(st stateStore) AuthOption {
	return func(s *Auth) *Auth {
		s.states = st
		return s
	}
}

// NewAuth creates a new Auth service with the provided options
func NewAuth(opts ...AuthOption) *Auth {
	s := &Auth{}
	for _, opt := range opts {
		s = opt(s)
	}

	if s.store == nil {
		panic("store is required")
	}

	if s.hasher == nil {
		panic("password hasher is required")
	}

	if s.tokens == nil {
		panic("token issuer is required")
	}

	if s.linkedin == nil {
		panic("linkedin client is required")
	}

	if s.states == nil {
		panic("state store is required")
	}

	return s
}

// UserView is the client-facing projection of a user record; it never carries
// the password digest or the provider access token.
type UserView struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	LinkedInURL         string `json:"linkedin_url"`
	GitHubURL           string `json:"github_url"`
	LinkedInID          string `json:"linkedin_id"`
	ProfilePictureURL   string `json:"profile_picture_url"`
	IsLinkedInConnected bool   `json:"is_linkedin_connected"`
}

func viewOf(u store.User) UserView {
	return UserView{
		Name:                u.Name,
		Email:               u.Email,
		LinkedInURL:         u.LinkedInURL,
		GitHubURL:           u.GitHubURL,
		LinkedInID:          u.LinkedInID,
		ProfilePictureURL:   u.ProfilePictureURL,
		IsLinkedInConnected: u.IsLinkedInConnected,
	}
}

type RegisterRequest struct {
	Name        string
	Email       string
	Password    string
	LinkedInURL string
	GitHubURL   string
}

type RegisterResponse struct {
	User         UserView
	SessionToken string
}

// Register creates a local account and opens a session for it.
func (s *Auth) Register(ctx context.Context, r RegisterRequest) (RegisterResponse, error) {
	hash, err := s.hasher.Hash(r.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	_, err = s.store.CreateUser(ctx, store.CreateUserRequest{
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: hash,
		LinkedInURL:  r.LinkedInURL,
		GitHubURL:    r.GitHubURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return RegisterResponse{}, serr.NewServiceError(err, http.StatusBadRequest, "Email already registered")
		}

		return RegisterResponse{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Database service unavailable")
	}

	tk, err := s.tokens.Issue(r.Email)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("issue session token: %w", err)
	}

	return RegisterResponse{
		User: UserView{
			Name:        r.Name,
			Email:       r.Email,
			LinkedInURL: r.LinkedInURL,
			GitHubURL:   r.GitHubURL,
		},
		SessionToken: tk,
	}, nil
}

type LoginRequest struct {
	Email    string
	Password string
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords produce the same error so clients cannot probe for accounts.
func (s *Auth) Login(ctx context.Context, r LoginRequest) (string, error) {
	invalid := func(err error) error {
		return serr.NewServiceError(err, http.StatusUnauthorized, "Invalid email or password")
	}

	usr, err := s.store.GetUserByEmail(ctx, r.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", invalid(err)
		}

		return "", serr.NewServiceError(err, http.StatusServiceUnavailable, "Database service unavailable")
	}

	if !usr.HasPassword() {
		return "", invalid(errors.New("account has no password"))
	}

	ok, err := s.hasher.Verify(r.Password, usr.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", invalid(errors.New("password mismatch"))
	}

	tk, err := s.tokens.Issue(usr.Email)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}

	return tk, nil
}

// CurrentUser returns the profile for a session's subject email.
func (s *Auth) CurrentUser(ctx context.Context, email string) (UserView, error) {
	usr, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserView{}, serr.NewServiceError(err, http.StatusNotFound, "User not found")
		}

		return UserView{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Database service unavailable")
	}

	return viewOf(usr), nil
}

// DeleteAccount removes the user record; the caller clears the session cookie
// only on success.
func (s *Auth) DeleteAccount(ctx context.Context, email string) error {
	if err := s.store.DeleteUser(ctx, email); err != nil {
		return serr.NewServiceError(err, http.StatusServiceUnavailable, "Could not delete user account")
	}

	return nil
}
