package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type memCache struct {
	mu    sync.Mutex
	tok   *oauth2.Token
	saves int
}

func (m *memCache) Load() (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *memCache) Save(tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	m.saves++
	return nil
}

type tokenServer struct {
	*httptest.Server
	refreshes   int32
	devicePolls int32
	refreshFail bool
	deviceFail  bool
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()

	ts := &tokenServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/devicecode", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		if ts.deviceFail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"device_code":"dc-1","user_code":"ABCD-EFGH","verification_uri":"https://microsoft.com/devicelogin","expires_in":60,"interval":1}`))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")

		switch r.PostForm.Get("grant_type") {
		case "refresh_token":
			atomic.AddInt32(&ts.refreshes, 1)
			if ts.refreshFail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"refreshed","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-2"}`))
		case "urn:ietf:params:oauth:grant-type:device_code":
			atomic.AddInt32(&ts.devicePolls, 1)
			assert.Equal(t, "dc-1", r.PostForm.Get("device_code"))
			_, _ = w.Write([]byte(`{"access_token":"from-device","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-d"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestProvider(ts *tokenServer, cache Cache) *Provider {
	return NewProvider(Config{
		ClientID: "client-1",
		Scopes:   []string{"Mail.Read", "offline_access"},
		Endpoint: &oauth2.Endpoint{
			TokenURL:      ts.URL + "/token",
			DeviceAuthURL: ts.URL + "/devicecode",
		},
	}, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAccessTokenUsesValidCachedToken(t *testing.T) {
	ts := newTokenServer(t)
	cache := &memCache{tok: &oauth2.Token{AccessToken: "cached", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}}
	p := newTestProvider(ts, cache)

	tok, err := p.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cached", tok)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ts.refreshes))
	assert.Equal(t, 0, cache.saves)
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	ts := newTokenServer(t)
	cache := &memCache{tok: &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Minute)}}
	p := newTestProvider(ts, cache)

	tok, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok)

	// Second call is served from memory
	tok, err = p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok)

	assert.Equal(t, int32(1), atomic.LoadInt32(&ts.refreshes))
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, "refresh-2", cache.tok.RefreshToken)
}

func TestAccessTokenFallsBackToDeviceFlow(t *testing.T) {
	ts := newTokenServer(t)
	ts.refreshFail = true
	cache := &memCache{tok: &oauth2.Token{AccessToken: "stale", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Minute)}}
	p := newTestProvider(ts, cache)

	tok, err := p.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "from-device", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ts.refreshes))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ts.devicePolls))
	assert.Equal(t, "refresh-d", cache.tok.RefreshToken)
}

func TestAccessTokenReturnsAuthError(t *testing.T) {
	ts := newTokenServer(t)
	ts.deviceFail = true
	p := newTestProvider(ts, &memCache{})

	_, err := p.AccessToken(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "device authorization", authErr.Op)
}

func TestConcurrentCallersShareOneRefresh(t *testing.T) {
	ts := newTokenServer(t)
	cache := &memCache{tok: &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh-1", Expiry: time.Now().Add(-time.Minute)}}
	p := newTestProvider(ts, cache)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := p.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "refreshed", tok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ts.refreshes))
}

func TestFileCacheRoundTrip(t *testing.T) {
	cache := NewFileCache(filepath.Join(t.TempDir(), "nested", "token.json"))

	tok, err := cache.Load()
	require.NoError(t, err)
	assert.Nil(t, tok)

	expiry := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Save(&oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}))

	tok, err = cache.Load()
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.True(t, expiry.Equal(tok.Expiry))
}

func TestNewCache(t *testing.T) {
	cache, err := NewCache("file", filepath.Join(t.TempDir(), "token.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileCache{}, cache)

	_, err = NewCache("vault", "token.json")
	assert.Error(t, err)
}
