package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aptwise/aptwise/internal/auth/linkedin"
	"github.com/aptwise/aptwise/internal/auth/service"
	"github.com/aptwise/aptwise/internal/pkg/httpx"
	"github.com/aptwise/aptwise/internal/pkg/middleware"
	"github.com/aptwise/aptwise/internal/pkg/router"
)

type authService interface {
	Register(ctx context.Context, r service.RegisterRequest) (service.RegisterResponse, error)
	Login(ctx context.Context, r service.LoginRequest) (string, error)
	CurrentUser(ctx context.Context, email string) (service.UserView, error)
	DeleteAccount(ctx context.Context, email string) error
	LinkedInAuthorizeURL(ctx context.Context) (service.AuthorizeResponse, error)
	LinkedInLogin(ctx context.Context, r service.LinkedInCallbackRequest) (service.LinkedInLoginResponse, error)
	LinkedInConnect(ctx context.Context, email string, r service.LinkedInCallbackRequest) (service.ConnectResponse, error)
	LinkedInDisconnect(ctx context.Context, email string) error
	LinkedInProfile(ctx context.Context, email string) (service.LinkedInProfileResponse, error)
}

// DebugInfo is what the debug endpoint may disclose: whether the provider
// credentials are configured, never their values.
type DebugInfo struct {
	ClientIDConfigured     bool   `json:"client_id_configured"`
	ClientSecretConfigured bool   `json:"client_secret_configured"`
	RedirectURL            string `json:"redirect_url"`
}

type Config struct {
	CookieName          string
	CookieTTL           time.Duration
	FrontendCallbackURL string
	Session             router.Middleware
	Debug               *DebugInfo
}

type API struct {
	srv authService
	cfg Config
	mux *http.ServeMux
}

func NewAPI(srv authService, cfg Config) *API {
	if cfg.Session == nil {
		panic("session middleware is required")
	}

	api := &API{
		srv: srv,
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	api.mount()
	return api
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

func (a *API) mount() {
	a.mux.HandleFunc("POST /create-account", a.handleCreateAccount)
	a.mux.HandleFunc("POST /login", a.handleLogin)
	a.mux.HandleFunc("POST /logout", a.handleLogout)
	a.mux.Handle("GET /me", a.protected(a.handleMe))
	a.mux.Handle("DELETE /delete-account", a.protected(a.handleDeleteAccount))

	a.mux.HandleFunc("GET /linkedin/authorize", a.handleLinkedInAuthorize)
	a.mux.HandleFunc("GET /linkedin/callback", a.handleLinkedInRedirect)
	a.mux.HandleFunc("POST /linkedin/callback", a.handleLinkedInCallback)
	a.mux.Handle("POST /linkedin/connect", a.protected(a.handleLinkedInConnect))
	a.mux.Handle("POST /linkedin/disconnect", a.protected(a.handleLinkedInDisconnect))
	a.mux.Handle("GET /linkedin/profile", a.protected(a.handleLinkedInProfile))

	if a.cfg.Debug != nil {
		a.mux.HandleFunc("GET /debug/linkedin", a.handleDebugLinkedIn)
	}
}

func (a *API) protected(h http.HandlerFunc) http.Handler {
	return a.cfg.Session(h)
}

func (a *API) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.cfg.CookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type createAccountRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	LinkedInURL string `json:"linkedin_url"`
	GitHubURL   string `json:"github_url"`
}

func (a *API) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	resp, err := a.srv.Register(r.Context(), service.RegisterRequest{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		LinkedInURL: req.LinkedInURL,
		GitHubURL:   req.GitHubURL,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	a.setSessionCookie(w, resp.SessionToken)
	if err := httpx.WriteJSON(w, http.StatusOK, resp.User); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	token, err := a.srv.Login(r.Context(), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	a.setSessionCookie(w, token)
	err = httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Login successful",
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	a.clearSessionCookie(w)
	err := httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Successfully logged out",
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	email := middleware.UserEmailFromContext(r.Context())

	view, err := a.srv.CurrentUser(r.Context(), email)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	if err := httpx.WriteJSON(w, http.StatusOK, view); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

func (a *API) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	email := middleware.UserEmailFromContext(r.Context())

	if err := a.srv.DeleteAccount(r.Context(), email); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	a.clearSessionCookie(w)
	err := httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "Account deleted successfully",
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

type authorizeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

func (a *API) handleLinkedInAuthorize(w http.ResponseWriter, r *http.Request) {
	resp, err := a.srv.LinkedInAuthorizeURL(r.Context())
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, authorizeResponse{
		AuthorizationURL: resp.AuthorizationURL,
		State:            resp.State,
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

// handleLinkedInRedirect relays the provider's browser redirect to the
// frontend callback, forwarding either the auth code or the provider error.
func (a *API) handleLinkedInRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fwd := url.Values{}

	switch {
	case q.Get("error") != "":
		fwd.Set("error", q.Get("error"))
		fwd.Set("error_description", q.Get("error_description"))
	case q.Get("code") != "" && q.Get("state") != "":
		fwd.Set("code", q.Get("code"))
		fwd.Set("state", q.Get("state"))
	default:
		fwd.Set("error", "invalid_request")
		fwd.Set("error_description", "Missing required parameters")
	}

	http.Redirect(w, r, a.cfg.FrontendCallbackURL+"?"+fwd.Encode(), http.StatusFound)
}

type linkedInCallbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type linkedInLoginResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	User    service.UserView `json:"user"`
}

func (a *API) handleLinkedInCallback(w http.ResponseWriter, r *http.Request) {
	var req linkedInCallbackRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	resp, err := a.srv.LinkedInLogin(r.Context(), service.LinkedInCallbackRequest{
		Code:  req.Code,
		State: req.State,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	a.setSessionCookie(w, resp.SessionToken)
	err = httpx.WriteJSON(w, http.StatusOK, linkedInLoginResponse{
		Status:  "success",
		Message: "LinkedIn authentication successful",
		User:    resp.User,
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

type linkedInConnection struct {
	LinkedInID        string `json:"linkedin_id"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

type linkedInConnectResponse struct {
	Status          string             `json:"status"`
	Message         string             `json:"message"`
	LinkedInProfile linkedInConnection `json:"linkedin_profile"`
}

func (a *API) handleLinkedInConnect(w http.ResponseWriter, r *http.Request) {
	email := middleware.UserEmailFromContext(r.Context())

	var req linkedInCallbackRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("read request json: %w", err))
		return
	}

	resp, err := a.srv.LinkedInConnect(r.Context(), email, service.LinkedInCallbackRequest{
		Code:  req.Code,
		State: req.State,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, linkedInConnectResponse{
		Status:  "success",
		Message: "LinkedIn account connected successfully",
		LinkedInProfile: linkedInConnection{
			LinkedInID:        resp.LinkedInID,
			ProfilePictureURL: resp.ProfilePictureURL,
		},
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

func (a *API) handleLinkedInDisconnect(w http.ResponseWriter, r *http.Request) {
	email := middleware.UserEmailFromContext(r.Context())

	if err := a.srv.LinkedInDisconnect(r.Context(), email); err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err := httpx.WriteJSON(w, http.StatusOK, statusResponse{
		Status:  "success",
		Message: "LinkedIn account disconnected successfully",
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

type linkedInProfileResponse struct {
	Status          string                 `json:"status"`
	LinkedInProfile linkedin.Profile       `json:"linkedin_profile"`
	CachedData      service.CachedLinkedIn `json:"cached_data"`
}

func (a *API) handleLinkedInProfile(w http.ResponseWriter, r *http.Request) {
	email := middleware.UserEmailFromContext(r.Context())

	resp, err := a.srv.LinkedInProfile(r.Context(), email)
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, linkedInProfileResponse{
		Status:          "success",
		LinkedInProfile: resp.Profile,
		CachedData:      resp.Cached,
	})
	if err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}

func (a *API) handleDebugLinkedIn(w http.ResponseWriter, r *http.Request) {
	if err := httpx.WriteJSON(w, http.StatusOK, a.cfg.Debug); err != nil {
		httpx.HandleErr(w, r, fmt.Errorf("write response json: %w", err))
		return
	}
}
