package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aptwise/aptwise/internal/auth/linkedin"
	"github.com/aptwise/aptwise/internal/auth/state"
	"github.com/aptwise/aptwise/internal/auth/store"
	"github.com/aptwise/aptwise/internal/pkg/serr"
)

type AuthorizeResponse struct {
	AuthorizationURL string
	State            string
}

// LinkedInAuthorizeURL issues a fresh single-use state and builds the
// provider authorization URL around it.
func (s *Auth) LinkedInAuthorizeURL(ctx context.Context) (AuthorizeResponse, error) {
	st, err := s.states.Issue(ctx)
	if err != nil {
		return AuthorizeResponse{}, serr.NewServiceError(err, http.StatusInternalServerError, "Failed to generate LinkedIn authorization URL")
	}

	return AuthorizeResponse{
		AuthorizationURL: s.linkedin.AuthCodeURL(st),
		State:            st,
	}, nil
}

type LinkedInCallbackRequest struct {
	Code  string
	State string
}

type LinkedInLoginResponse struct {
	User         UserView
	SessionToken string
}

// LinkedInLogin completes the OAuth handshake and logs the profile's owner
// in, linking or creating the local account as needed.
func (s *Auth) LinkedInLogin(ctx context.Context, r LinkedInCallbackRequest) (LinkedInLoginResponse, error) {
	profile, accessToken, err := s.completeHandshake(ctx, r)
	if err != nil {
		return LinkedInLoginResponse{}, err
	}

	if profile.Email == "" {
		return LinkedInLoginResponse{}, serr.NewServiceError(
			errors.New("userinfo has no email"),
			http.StatusBadRequest, "Unable to retrieve email from LinkedIn profile")
	}

	usr, err := s.store.GetUserByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if err := s.checkCollision(ctx, profile.ID, usr.Email); err != nil {
			return LinkedInLoginResponse{}, err
		}

		if err := s.store.UpdateLinkedIn(ctx, store.UpdateLinkedInRequest{
			Email:               usr.Email,
			LinkedInID:          profile.ID,
			LinkedInAccessToken: accessToken,
			ProfilePictureURL:   profile.Picture,
		}); err != nil {
			return LinkedInLoginResponse{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Failed to update LinkedIn connection")
		}

	case errors.Is(err, store.ErrNotFound):
		if err := s.checkCollision(ctx, profile.ID, profile.Email); err != nil {
			return LinkedInLoginResponse{}, err
		}

		if _, err := s.store.CreateUser(ctx, store.CreateUserRequest{
			Name:                profile.Name,
			Email:               profile.Email,
			LinkedInID:          profile.ID,
			LinkedInAccessToken: accessToken,
			ProfilePictureURL:   profile.Picture,
		}); err != nil {
			if errors.Is(err, store.ErrDuplicateLinkedInID) {
				return LinkedInLoginResponse{}, collisionError(err)
			}

			return LinkedInLoginResponse{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Failed to create user account")
		}

	default:
		return LinkedInLoginResponse{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Database service unavailable")
	}

	tk, err := s.tokens.Issue(profile.Email)
	if err != nil {
		return LinkedInLoginResponse{}, fmt.Errorf("issue session token: %w", err)
	}

	view, err := s.CurrentUser(ctx, profile.Email)
	if err != nil {
		return LinkedInLoginResponse{}, fmt.Errorf("load linked user: %w", err)
	}

	return LinkedInLoginResponse{
		User:         view,
		SessionToken: tk,
	}, nil
}

type ConnectResponse struct {
	LinkedInID        string
	ProfilePictureURL string
}

// LinkedInConnect links a LinkedIn identity to the authenticated user.
func (s *Auth) LinkedInConnect(ctx context.Context, email string, r LinkedInCallbackRequest) (ConnectResponse, error) {
	profile, accessToken, err := s.completeHandshake(ctx, r)
	if err != nil {
		return ConnectResponse{}, err
	}

	if err := s.checkCollision(ctx, profile.ID, email); err != nil {
		return ConnectResponse{}, err
	}

	if err := s.store.UpdateLinkedIn(ctx, store.UpdateLinkedInRequest{
		Email:               email,
		LinkedInID:          profile.ID,
		LinkedInAccessToken: accessToken,
		ProfilePictureURL:   profile.Picture,
	}); err != nil {
		if errors.Is(err, store.ErrDuplicateLinkedInID) {
			return ConnectResponse{}, collisionError(err)
		}

		return ConnectResponse{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Failed to connect LinkedIn account")
	}

	return ConnectResponse{
		LinkedInID:        profile.ID,
		ProfilePictureURL: profile.Picture,
	}, nil
}

// LinkedInDisconnect clears the LinkedIn fields on the authenticated user.
func (s *Auth) LinkedInDisconnect(ctx context.Context, email string) error {
	if err := s.store.ClearLinkedIn(ctx, email); err != nil {
		return serr.NewServiceError(err, http.StatusServiceUnavailable, "Failed to disconnect LinkedIn account")
	}

	return nil
}

type CachedLinkedIn struct {
	LinkedInID          string `json:"linkedin_id"`
	ProfilePictureURL   string `json:"profile_picture_url"`
	IsLinkedInConnected bool   `json:"is_linkedin_connected"`
}

type LinkedInProfileResponse struct {
	Profile linkedin.Profile
	Cached  CachedLinkedIn
}

// LinkedInProfile performs a live profile fetch with the stored access token
// and returns it alongside the cached subset from the user record.
func (s *Auth) LinkedInProfile(ctx context.Context, email string) (LinkedInProfileResponse, error) {
	usr, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LinkedInProfileResponse{}, serr.NewServiceError(err, http.StatusBadRequest, "LinkedIn account not connected")
		}

		return LinkedInProfileResponse{}, serr.NewServiceError(err, http.StatusServiceUnavailable, "Database service unavailable")
	}

	if !usr.IsLinkedInConnected {
		return LinkedInProfileResponse{}, serr.NewServiceError(
			errors.New("user has no linkedin connection"),
			http.StatusBadRequest, "LinkedIn account not connected")
	}

	if usr.LinkedInAccessToken == "" {
		return LinkedInProfileResponse{}, serr.NewServiceError(
			errors.New("user has no linkedin access token"),
			http.StatusBadRequest, "LinkedIn access token not available")
	}

	profile, err := s.linkedin.UserInfo(ctx, usr.LinkedInAccessToken)
	if err != nil {
		return LinkedInProfileResponse{}, fmt.Errorf("fetch linkedin profile: %w", err)
	}

	return LinkedInProfileResponse{
		Profile: profile,
		Cached: CachedLinkedIn{
			LinkedInID:          usr.LinkedInID,
			ProfilePictureURL:   usr.ProfilePictureURL,
			IsLinkedInConnected: usr.IsLinkedInConnected,
		},
	}, nil
}

// completeHandshake validates the anti-CSRF state, exchanges the code, and
// fetches the provider profile.
func (s *Auth) completeHandshake(ctx context.Context, r LinkedInCallbackRequest) (linkedin.Profile, string, error) {
	if err := s.states.Redeem(ctx, r.State); err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			return linkedin.Profile{}, "", serr.NewServiceError(err, http.StatusUnauthorized, "LinkedIn authentication failed")
		}

		return linkedin.Profile{}, "", fmt.Errorf("redeem oauth state: %w", err)
	}

	accessToken, err := s.linkedin.Exchange(ctx, r.Code)
	if err != nil {
		if errors.Is(err, linkedin.ErrAuthFailed) {
			return linkedin.Profile{}, "", serr.NewServiceError(err, http.StatusUnauthorized, "LinkedIn authentication failed")
		}

		return linkedin.Profile{}, "", fmt.Errorf("exchange code: %w", err)
	}

	profile, err := s.linkedin.UserInfo(ctx, accessToken)
	if err != nil {
		if errors.Is(err, linkedin.ErrAuthFailed) {
			return linkedin.Profile{}, "", serr.NewServiceError(err, http.StatusUnauthorized, "LinkedIn authentication failed")
		}

		return linkedin.Profile{}, "", fmt.Errorf("fetch userinfo: %w", err)
	}

	if profile.ID == "" {
		return linkedin.Profile{}, "", serr.NewServiceError(
			errors.New("userinfo has no subject id"),
			http.StatusBadRequest, "Unable to retrieve id from LinkedIn profile")
	}

	return profile, accessToken, nil
}

// checkCollision rejects a linkedin id already bound to an account other than
// ownerEmail. Both the login and connect paths run it, so re-linking the same
// account stays allowed while takeovers fail.
func (s *Auth) checkCollision(ctx context.Context, linkedinID, ownerEmail string) error {
	existing, err := s.store.GetUserByLinkedInID(ctx, linkedinID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}

		return serr.NewServiceError(err, http.StatusServiceUnavailable, "Database service unavailable")
	}

	if existing.Email != ownerEmail {
		return collisionError(fmt.Errorf("linkedin id bound to another account"))
	}

	return nil
}

func collisionError(err error) error {
	return serr.NewServiceError(err, http.StatusBadRequest, "This LinkedIn account is already connected to another user")
}
