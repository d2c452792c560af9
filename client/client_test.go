package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashkit/authcore/auth"
	"github.com/dashkit/authcore/client"
	"github.com/dashkit/authcore/config"
	"github.com/dashkit/authcore/db"
	"github.com/dashkit/authcore/pkg/apierr"
)

type memoryStore struct {
	mu    sync.Mutex
	token *db.Token
}

func (m *memoryStore) Get(ctx context.Context) (*db.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil {
		return nil, nil
	}
	copied := *m.token
	return &copied, nil
}

func (m *memoryStore) Upsert(ctx context.Context, token *db.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
	return nil
}

func (m *memoryStore) current() *db.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

func signToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		APIBaseURL:   serverURL,
		LoginPath:    "/auth/login",
		RefreshPath:  "/auth/refresh",
		IdentityPath: "/auth/me",
		LogoutPath:   "/auth/logout",
		HTTPTimeout:  5 * time.Second,
		ExpiryBuffer: time.Minute,
	}
}

func newTestClient(t *testing.T, serverURL string, store auth.TokenStore, onAuthFailure func()) *client.Client {
	t.Helper()
	cfg := testConfig(serverURL)
	c := client.New(cfg)
	coordinator := auth.NewCoordinator(store, c, cfg.ExpiryBuffer)
	return c.WithAuth(coordinator, onAuthFailure)
}

func validStoredToken(t *testing.T) *db.Token {
	t.Helper()
	return &db.Token{
		AccessToken:  signToken(t, 1*time.Hour),
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(1 * time.Hour).Unix(),
	}
}

func expiredStoredToken(t *testing.T) *db.Token {
	t.Helper()
	return &db.Token{
		AccessToken:  signToken(t, -1*time.Hour),
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(-1 * time.Hour).Unix(),
	}
}

func TestSend_AttachesBearerToken(t *testing.T) {
	store := &memoryStore{token: validStoredToken(t)}
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)
	body, err := c.Send(context.Background(), http.MethodGet, "/widgets", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, "Bearer "+store.current().AccessToken, gotAuth)
}

func TestSend_RefreshAndRetryOn401(t *testing.T) {
	store := &memoryStore{token: expiredStoredToken(t)}
	newAccess := signToken(t, 1*time.Hour)

	var refreshCalls, dataCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var payload struct {
			RefreshToken string `json:"refreshToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "refresh-token", payload.RefreshToken)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": newAccess, "refreshToken": "refresh-2", "expiresIn": 3600,
		})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+newAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"rows":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)
	body, err := c.Send(context.Background(), http.MethodGet, "/data", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"rows":[]}`, string(body))
	assert.Equal(t, int64(1), refreshCalls.Load())
	assert.Equal(t, int64(2), dataCalls.Load(), "original request plus exactly one retry")
	assert.Equal(t, "refresh-2", store.current().RefreshToken)
}

func TestSend_NoInfiniteRetry(t *testing.T) {
	store := &memoryStore{token: expiredStoredToken(t)}
	var refreshCalls, dataCalls, authFailures atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": signToken(t, 1*time.Hour), "expiresIn": 3600,
		})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized) // fresh token rejected too
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, store, func() { authFailures.Add(1) })
	_, err := c.Send(context.Background(), http.MethodGet, "/data", nil)

	require.Error(t, err)
	assert.True(t, apierr.IsType(err, apierr.Unauthorized))
	assert.Equal(t, int64(1), refreshCalls.Load())
	assert.Equal(t, int64(2), dataCalls.Load(), "must stop after one refresh+retry cycle")
	assert.Equal(t, int64(1), authFailures.Load())
}

func TestSend_RefreshFailurePropagatesAuthExpired(t *testing.T) {
	store := &memoryStore{token: expiredStoredToken(t)}
	var authFailures atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, store, func() { authFailures.Add(1) })
	_, err := c.Send(context.Background(), http.MethodGet, "/data", nil)

	require.Error(t, err)
	assert.True(t, apierr.IsType(err, apierr.AuthExpired))
	assert.Nil(t, store.current(), "failed refresh must clear the token store")
	assert.Equal(t, int64(1), authFailures.Load())
}

func TestSend_ForbiddenDoesNotRefresh(t *testing.T) {
	store := &memoryStore{token: validStoredToken(t)}
	var refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)
	_, err := c.Send(context.Background(), http.MethodGet, "/data", nil)

	require.Error(t, err)
	assert.True(t, apierr.IsType(err, apierr.Forbidden))
	assert.Equal(t, int64(0), refreshCalls.Load())
	assert.NotNil(t, store.current(), "403 must not clear the session")
}

func TestSend_ServerErrorNotRetried(t *testing.T) {
	store := &memoryStore{token: validStoredToken(t)}
	var dataCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)
	_, err := c.Send(context.Background(), http.MethodGet, "/data", nil)

	require.Error(t, err)
	assert.True(t, apierr.IsType(err, apierr.Server))
	assert.Equal(t, int64(1), dataCalls.Load())
}

func TestSend_ValidationErrorCarriesDetails(t *testing.T) {
	store := &memoryStore{token: validStoredToken(t)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"name is required"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)
	_, err := c.Send(context.Background(), http.MethodPost, "/users", map[string]string{"name": ""})

	require.Error(t, err)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierr.Validation, apiErr.Type)
	assert.Contains(t, apiErr.Details, "name is required")
}

func TestSend_NetworkError(t *testing.T) {
	store := &memoryStore{token: validStoredToken(t)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := newTestClient(t, server.URL, store, nil)
	_, err := c.Send(context.Background(), http.MethodGet, "/data", nil)

	require.Error(t, err)
	assert.True(t, apierr.IsType(err, apierr.Network))
}

func TestSend_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	store := &memoryStore{token: expiredStoredToken(t)}
	newAccess := signToken(t, 1*time.Hour)
	var refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		time.Sleep(200 * time.Millisecond) // hold the refresh open so callers pile up
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken": newAccess, "refreshToken": "refresh-2", "expiresIn": 3600,
		})
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+newAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)

	const callers = 6
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Send(context.Background(), http.MethodGet, "/data", nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, int64(1), refreshCalls.Load(), "all concurrent 401s must share one refresh")
}

func TestLogin_ReturnsCanonicalTokenPair(t *testing.T) {
	userID := uuid.New()
	accessToken := signToken(t, 15*time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var creds client.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "admin@example.com", creds.Email)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  accessToken,
			"refreshToken": "refresh-1",
			"expiresIn":    900,
			"user": map[string]any{
				"id":          userID.String(),
				"email":       "admin@example.com",
				"role":        "admin",
				"permissions": []string{"users:read"},
			},
		})
	}))
	defer server.Close()

	c := client.New(testConfig(server.URL))
	tok, profile, err := c.Login(context.Background(), client.Credentials{
		Email:    "admin@example.com",
		Password: "secret-password",
	})

	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, accessToken, tok.AccessToken)
	assert.Equal(t, "refresh-1", tok.RefreshToken)
	assert.Greater(t, tok.ExpiresAt, time.Now().Unix())
	require.NotNil(t, profile)
	assert.Equal(t, userID, profile.ID)
	assert.Equal(t, "admin@example.com", profile.Email)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := client.New(testConfig(server.URL))
	_, _, err := c.Login(context.Background(), client.Credentials{Email: "x@y.z", Password: "bad"})

	require.Error(t, err)
	assert.True(t, apierr.IsType(err, apierr.Unauthorized))
}

func TestFetchIdentity(t *testing.T) {
	store := &memoryStore{token: validStoredToken(t)}
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          userID.String(),
			"email":       "manager@example.com",
			"role":        "manager",
			"permissions": []string{"reports:read", "reports:export"},
		})
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, store, nil)
	profile, err := c.FetchIdentity(context.Background())

	require.NoError(t, err)
	assert.Equal(t, userID, profile.ID)
	assert.EqualValues(t, "manager", profile.Role)
	assert.Len(t, profile.Permissions, 2)
}
