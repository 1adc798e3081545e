package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/models"
	"github.com/01moynul/qr-inventory/internal/sheets"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.GenerateToken("session-1")
	require.NoError(t, err)

	id, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", id)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	token, err := NewTokenIssuer("one", time.Hour).GenerateToken("s")
	require.NoError(t, err)
	_, err = NewTokenIssuer("two", time.Hour).ValidateToken(token)
	assert.Error(t, err)

	expired, err := NewTokenIssuer("one", -time.Minute).GenerateToken("s")
	require.NoError(t, err)
	_, err = NewTokenIssuer("one", time.Hour).ValidateToken(expired)
	assert.Error(t, err)

	_, err = NewTokenIssuer("one", time.Hour).ValidateToken("garbage")
	assert.Error(t, err)
}

func TestTokenRejectsNonHMAC(t *testing.T) {
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "s"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("one", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func newGoogleStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			_ = r.ParseForm()
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "google-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer google-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"sub":     "123",
				"name":    "Ada",
				"email":   "ada@example.com",
				"picture": "https://example.com/ada.png",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *Provider {
	return NewProvider(ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/v1/auth/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		UserInfoURL:  srv.URL + "/userinfo",
		HTTPClient:   srv.Client(),
	})
}

func TestProviderAuthCodeURL(t *testing.T) {
	p := NewProvider(ProviderConfig{ClientID: "client", RedirectURL: "http://localhost/cb"})

	u, err := url.Parse(p.AuthCodeURL("state-1"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.String(), "https://accounts.google.com/"))
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Contains(t, u.Query().Get("scope"), "https://www.googleapis.com/auth/spreadsheets")
	assert.Contains(t, u.Query().Get("scope"), "https://www.googleapis.com/auth/drive.file")
}

func TestProviderExchangeAndUserInfo(t *testing.T) {
	p := newTestProvider(newGoogleStub(t))
	ctx := context.Background()

	token, err := p.Exchange(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "google-token", token.AccessToken)

	user, err := p.FetchUserInfo(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.User{Name: "Ada", Email: "ada@example.com", Picture: "https://example.com/ada.png"}, user)

	_, err = p.Exchange(ctx, "bad-code")
	assert.True(t, errors.Is(err, apperr.ErrRemoteRequest))

	_, err = p.FetchUserInfo(ctx, "stale-token")
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
}

type stubValues struct{}

func (stubValues) Get(context.Context, string, string) ([][]string, error) { return nil, nil }
func (stubValues) Update(context.Context, string, string, [][]interface{}) error {
	return nil
}

type stubUsers struct {
	user models.User
	err  error
}

func (s stubUsers) FetchUserInfo(context.Context, string) (models.User, error) { return s.user, s.err }

func okFactory(context.Context, string) (sheets.ValuesClient, error) { return stubValues{}, nil }

func TestManagerLoginRestoreSignOut(t *testing.T) {
	store := NewMemoryStore()
	users := stubUsers{user: models.User{Name: "Ada", Email: "ada@example.com"}}
	m := NewManager(store, users, okFactory, zap.NewNop())
	ctx := context.Background()

	sess, err := m.Login(ctx, "google-token")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	_, err = sess.Ready()
	require.NoError(t, err)

	saved, ok, err := store.Get(ctx, sess.ID, KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "google-token", saved)

	restored, err := m.Restore(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", restored.User.Name)
	assert.Equal(t, "google-token", restored.AccessToken)

	require.NoError(t, m.SignOut(ctx, sess.ID))
	_, err = m.Restore(ctx, sess.ID)
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
}

func TestManagerLoginFailuresPersistNothing(t *testing.T) {
	ctx := context.Background()

	store := NewMemoryStore()
	m := NewManager(store, stubUsers{err: apperr.RemoteUnavailable("rejected")}, okFactory, zap.NewNop())
	_, err := m.Login(ctx, "token")
	assert.Error(t, err)
	assert.Empty(t, store.values)

	failing := func(context.Context, string) (sheets.ValuesClient, error) {
		return nil, errors.New("Sheets API failed to load")
	}
	m = NewManager(store, stubUsers{}, failing, zap.NewNop())
	_, err = m.Login(ctx, "token")
	assert.Error(t, err)
	assert.Empty(t, store.values)

	_, err = m.Login(ctx, "")
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
}

func TestManagerRestoreClearsInvalidSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "s1", KeyUser, `{"name":"Ada"}`))
	require.NoError(t, store.Set(ctx, "s1", KeyAccessToken, "expired"))

	failing := func(context.Context, string) (sheets.ValuesClient, error) {
		return nil, errors.New("init failed")
	}
	m := NewManager(store, stubUsers{}, failing, zap.NewNop())

	_, err := m.Restore(ctx, "s1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
	assert.Equal(t, "Session expired. Please sign in again.", apperr.UserMessage(err))

	_, ok, _ := store.Get(ctx, "s1", KeyUser)
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "s1", KeyAccessToken)
	assert.False(t, ok)
}

func TestManagerRestoreNeedsBothKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "s1", KeyUser, `{"name":"Ada"}`))
	m := NewManager(store, stubUsers{}, okFactory, zap.NewNop())

	_, err := m.Restore(ctx, "s1")
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
}

func TestNilSessionNotReady(t *testing.T) {
	var sess *Session
	_, err := sess.Ready()
	assert.True(t, errors.Is(err, apperr.ErrRemoteUnavailable))
}
