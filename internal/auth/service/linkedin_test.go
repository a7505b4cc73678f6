package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/aptwise/aptwise/internal/auth/linkedin"
	"github.com/aptwise/aptwise/internal/auth/state"
	"github.com/aptwise/aptwise/internal/auth/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func happyLinkedIn(profile linkedin.Profile) *mockLinkedIn {
	return &mockLinkedIn{
		authCodeURLFunc: func(state string) string {
			return "https://www.linkedin.com/oauth/v2/authorization?state=" + state
		},
		exchangeFunc: func(ctx context.Context, code string) (string, error) {
			return "provider-token", nil
		},
		userInfoFunc: func(ctx context.Context, accessToken string) (linkedin.Profile, error) {
			return profile, nil
		},
	}
}

// memStore keeps user records in maps so link flows can assert on final
// state.
type memStore struct {
	byEmail map[string]store.User
}

func newMemStore(users ...store.User) *memStore {
	m := &memStore{byEmail: make(map[string]store.User)}
	for _, u := range users {
		m.byEmail[u.Email] = u
	}
	return m
}

func (m *memStore) asMock() *mockStore {
	return &mockStore{
		getByEmailFunc: func(ctx context.Context, email string) (store.User, error) {
			u, ok := m.byEmail[email]
			if !ok {
				return store.User{}, store.ErrNotFound
			}
			return u, nil
		},
		getByLinkedInIDFunc: func(ctx context.Context, linkedinID string) (store.User, error) {
			for _, u := range m.byEmail {
				if u.LinkedInID == linkedinID && u.LinkedInID != "" {
					return u, nil
				}
			}
			return store.User{}, store.ErrNotFound
		},
		createUserFunc: func(ctx context.Context, r store.CreateUserRequest) (int64, error) {
			if _, ok := m.byEmail[r.Email]; ok {
				return 0, store.ErrDuplicateEmail
			}
			m.byEmail[r.Email] = store.User{
				ID:                  int64(len(m.byEmail) + 1),
				Name:                r.Name,
				Email:               r.Email,
				PasswordHash:        r.PasswordHash,
				LinkedInURL:         r.LinkedInURL,
				GitHubURL:           r.GitHubURL,
				LinkedInID:          r.LinkedInID,
				LinkedInAccessToken: r.LinkedInAccessToken,
				ProfilePictureURL:   r.ProfilePictureURL,
				IsLinkedInConnected: r.LinkedInID != "",
			}
			return m.byEmail[r.Email].ID, nil
		},
		updateLinkedInFunc: func(ctx context.Context, r store.UpdateLinkedInRequest) error {
			u, ok := m.byEmail[r.Email]
			if !ok {
				return store.ErrNotFound
			}
			u.LinkedInID = r.LinkedInID
			u.LinkedInAccessToken = r.LinkedInAccessToken
			u.ProfilePictureURL = r.ProfilePictureURL
			u.IsLinkedInConnected = true
			m.byEmail[r.Email] = u
			return nil
		},
		clearLinkedInFunc: func(ctx context.Context, email string) error {
			u, ok := m.byEmail[email]
			if !ok {
				return store.ErrNotFound
			}
			u.LinkedInID = ""
			u.LinkedInAccessToken = ""
			u.ProfilePictureURL = ""
			u.IsLinkedInConnected = false
			m.byEmail[email] = u
			return nil
		},
		deleteUserFunc: func(ctx context.Context, email string) error {
			if _, ok := m.byEmail[email]; !ok {
				return store.ErrNotFound
			}
			delete(m.byEmail, email)
			return nil
		},
	}
}

var aliceProfile = linkedin.Profile{
	ID:      "li-alice",
	Email:   "alice@example.com",
	Name:    "Alice Doe",
	Picture: "https://example.com/alice.jpg",
}

func TestLinkedInAuthorizeURL(t *testing.T) {
	srv := newTestAuth(newMemStore().asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	resp, err := srv.LinkedInAuthorizeURL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "state-123", resp.State)
	assert.Contains(t, resp.AuthorizationURL, "state=state-123")
}

func TestLinkedInAuthorizeURL_StateStoreDown(t *testing.T) {
	srv := newTestAuth(newMemStore().asMock(),
		WithLinkedIn(happyLinkedIn(aliceProfile)),
		WithStates(&mockStates{
			issueFunc: func(ctx context.Context) (string, error) {
				return "", assert.AnError
			},
		}),
	)

	_, err := srv.LinkedInAuthorizeURL(context.Background())
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestLinkedInLogin_NewUser(t *testing.T) {
	st := newMemStore()
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	resp, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	require.NoError(t, err)

	assert.Equal(t, "token-for-alice@example.com", resp.SessionToken)
	assert.Equal(t, "Alice Doe", resp.User.Name)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "li-alice", resp.User.LinkedInID)
	assert.True(t, resp.User.IsLinkedInConnected)

	created := st.byEmail["alice@example.com"]
	assert.Equal(t, "provider-token", created.LinkedInAccessToken)
	assert.False(t, created.HasPassword())
}

func TestLinkedInLogin_ExistingUserByEmail(t *testing.T) {
	st := newMemStore(store.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:pw1",
	})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	resp, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	require.NoError(t, err)

	assert.Equal(t, "token-for-alice@example.com", resp.SessionToken)

	linked := st.byEmail["alice@example.com"]
	assert.Equal(t, "li-alice", linked.LinkedInID)
	assert.Equal(t, "provider-token", linked.LinkedInAccessToken)
	assert.Equal(t, "https://example.com/alice.jpg", linked.ProfilePictureURL)
	assert.True(t, linked.IsLinkedInConnected)
	assert.Equal(t, "hashed:pw1", linked.PasswordHash)
}

func TestLinkedInLogin_InvalidState(t *testing.T) {
	srv := newTestAuth(newMemStore().asMock(),
		WithLinkedIn(happyLinkedIn(aliceProfile)),
		WithStates(&mockStates{
			redeemFunc: func(ctx context.Context, st string) error {
				return state.ErrStateNotFound
			},
		}),
	)

	_, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "forged"})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestLinkedInLogin_ExchangeRejected(t *testing.T) {
	srv := newTestAuth(newMemStore().asMock(), WithLinkedIn(&mockLinkedIn{
		exchangeFunc: func(ctx context.Context, code string) (string, error) {
			return "", linkedin.ErrAuthFailed
		},
	}))

	_, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "bad-code", State: "state-123"})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestLinkedInLogin_NoEmailInProfile(t *testing.T) {
	profile := linkedin.Profile{ID: "li-1", Name: "No Mail", Picture: "https://example.com/x.jpg"}
	st := newMemStore()
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(profile)))

	_, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	sErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Unable to retrieve email from LinkedIn profile", sErr.Msg)
	assert.Empty(t, st.byEmail)
}

func TestLinkedInLogin_NoIDInProfile(t *testing.T) {
	profile := linkedin.Profile{Email: "alice@example.com", Name: "Alice Doe"}
	st := newMemStore()
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(profile)))

	_, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	sErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Unable to retrieve id from LinkedIn profile", sErr.Msg)
	assert.Empty(t, st.byEmail)
}

func TestLinkedInConnect_NoIDInProfile(t *testing.T) {
	// A userinfo payload without a subject id must never flip the account
	// to connected.
	profile := linkedin.Profile{Email: "alice@example.com", Name: "Alice Doe"}
	st := newMemStore(store.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hashed:pw1"})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(profile)))

	_, err := srv.LinkedInConnect(context.Background(), "alice@example.com", LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	requireStatus(t, err, http.StatusBadRequest)

	u := st.byEmail["alice@example.com"]
	assert.False(t, u.IsLinkedInConnected)
	assert.Empty(t, u.LinkedInID)
}

func TestLinkedInLogin_LinkedInIDBoundElsewhere(t *testing.T) {
	// li-alice is already bound to bob; alice has no record yet.
	st := newMemStore(store.User{
		Name:                "Bob",
		Email:               "bob@example.com",
		LinkedInID:          "li-alice",
		IsLinkedInConnected: true,
	})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	_, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	sErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "This LinkedIn account is already connected to another user", sErr.Msg)

	_, ok := st.byEmail["alice@example.com"]
	assert.False(t, ok)
}

func TestLinkedInLogin_ExistingUser_LinkedInIDBoundElsewhere(t *testing.T) {
	// The email-match branch applies the same collision check as the
	// new-user branch.
	st := newMemStore(
		store.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hashed:pw1"},
		store.User{Name: "Bob", Email: "bob@example.com", LinkedInID: "li-alice", IsLinkedInConnected: true},
	)
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	_, err := srv.LinkedInLogin(context.Background(), LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	requireStatus(t, err, http.StatusBadRequest)

	assert.Empty(t, st.byEmail["alice@example.com"].LinkedInID)
	assert.Equal(t, "li-alice", st.byEmail["bob@example.com"].LinkedInID)
}

func TestLinkedInConnect(t *testing.T) {
	st := newMemStore(store.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hashed:pw1"})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	resp, err := srv.LinkedInConnect(context.Background(), "alice@example.com", LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	require.NoError(t, err)

	assert.Equal(t, "li-alice", resp.LinkedInID)
	assert.Equal(t, "https://example.com/alice.jpg", resp.ProfilePictureURL)

	linked := st.byEmail["alice@example.com"]
	assert.Equal(t, "li-alice", linked.LinkedInID)
	assert.True(t, linked.IsLinkedInConnected)
}

func TestLinkedInConnect_Reconnect(t *testing.T) {
	// Re-linking the same identity to the same user is not a collision.
	st := newMemStore(store.User{
		Name:                "Alice",
		Email:               "alice@example.com",
		LinkedInID:          "li-alice",
		IsLinkedInConnected: true,
	})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	_, err := srv.LinkedInConnect(context.Background(), "alice@example.com", LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	require.NoError(t, err)
}

func TestLinkedInConnect_Collision(t *testing.T) {
	st := newMemStore(
		store.User{Name: "Alice", Email: "alice@example.com"},
		store.User{Name: "Bob", Email: "bob@example.com", LinkedInID: "li-alice", IsLinkedInConnected: true},
	)
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	_, err := srv.LinkedInConnect(context.Background(), "alice@example.com", LinkedInCallbackRequest{Code: "auth-code", State: "state-123"})
	sErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "This LinkedIn account is already connected to another user", sErr.Msg)

	assert.Empty(t, st.byEmail["alice@example.com"].LinkedInID)
	assert.Equal(t, "li-alice", st.byEmail["bob@example.com"].LinkedInID)
}

func TestLinkedInDisconnect(t *testing.T) {
	st := newMemStore(store.User{
		Name:                "Alice",
		Email:               "alice@example.com",
		PasswordHash:        "hashed:pw1",
		LinkedInID:          "li-alice",
		LinkedInAccessToken: "provider-token",
		ProfilePictureURL:   "https://example.com/alice.jpg",
		IsLinkedInConnected: true,
	})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	err := srv.LinkedInDisconnect(context.Background(), "alice@example.com")
	require.NoError(t, err)

	u := st.byEmail["alice@example.com"]
	assert.Empty(t, u.LinkedInID)
	assert.Empty(t, u.LinkedInAccessToken)
	assert.Empty(t, u.ProfilePictureURL)
	assert.False(t, u.IsLinkedInConnected)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "hashed:pw1", u.PasswordHash)
}

func TestLinkedInDisconnect_StoreDown(t *testing.T) {
	srv := newTestAuth(&mockStore{
		clearLinkedInFunc: func(ctx context.Context, email string) error {
			return assert.AnError
		},
	}, WithLinkedIn(happyLinkedIn(aliceProfile)))

	err := srv.LinkedInDisconnect(context.Background(), "alice@example.com")
	requireStatus(t, err, http.StatusServiceUnavailable)
}

func TestLinkedInProfile(t *testing.T) {
	st := newMemStore(store.User{
		Name:                "Alice",
		Email:               "alice@example.com",
		LinkedInID:          "li-alice",
		LinkedInAccessToken: "provider-token",
		ProfilePictureURL:   "https://example.com/cached.jpg",
		IsLinkedInConnected: true,
	})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	resp, err := srv.LinkedInProfile(context.Background(), "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, aliceProfile, resp.Profile)
	assert.Equal(t, "li-alice", resp.Cached.LinkedInID)
	assert.Equal(t, "https://example.com/cached.jpg", resp.Cached.ProfilePictureURL)
	assert.True(t, resp.Cached.IsLinkedInConnected)
}

func TestLinkedInProfile_NotConnected(t *testing.T) {
	st := newMemStore(store.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hashed:pw1"})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	_, err := srv.LinkedInProfile(context.Background(), "alice@example.com")
	sErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "LinkedIn account not connected", sErr.Msg)
}

func TestLinkedInProfile_NoStoredToken(t *testing.T) {
	st := newMemStore(store.User{
		Name:                "Alice",
		Email:               "alice@example.com",
		LinkedInID:          "li-alice",
		IsLinkedInConnected: true,
	})
	srv := newTestAuth(st.asMock(), WithLinkedIn(happyLinkedIn(aliceProfile)))

	_, err := srv.LinkedInProfile(context.Background(), "alice@example.com")
	sErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "LinkedIn access token not available", sErr.Msg)
}
