package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/01moynul/qr-inventory/internal/apperr"
	"github.com/01moynul/qr-inventory/internal/models"
	"github.com/01moynul/qr-inventory/internal/sheets"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is a signed-in user with an initialized Sheets client. It is passed
// explicitly to every catalog call.
type Session struct {
	ID          string
	User        models.User
	AccessToken string

	values sheets.ValuesClient
}

// Ready returns the session's Sheets client, or RemoteUnavailable when the
// session is missing or was never initialized.
func (s *Session) Ready() (sheets.ValuesClient, error) {
	if s == nil || s.values == nil {
		return nil, apperr.RemoteUnavailable("Google API client not initialized. Please sign in again.")
	}
	return s.values, nil
}

// UserInfoFetcher resolves an access token to a profile.
type UserInfoFetcher interface {
	FetchUserInfo(ctx context.Context, accessToken string) (models.User, error)
}

// Manager creates, restores and ends sessions.
type Manager struct {
	store     Store
	users     UserInfoFetcher
	newClient sheets.ClientFactory
	log       *zap.Logger
}

func NewManager(store Store, users UserInfoFetcher, newClient sheets.ClientFactory, log *zap.Logger) *Manager {
	return &Manager{store: store, users: users, newClient: newClient, log: log}
}

// Login creates a session for accessToken. The Sheets client is initialized
// before anything is persisted, so a stored session always had a working
// client at creation time.
func (m *Manager) Login(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, apperr.RemoteUnavailable("No access token received")
	}

	user, err := m.users.FetchUserInfo(ctx, accessToken)
	if err != nil {
		m.log.Warn("Login failed: user info", zap.Error(err))
		return nil, err
	}

	values, err := m.newClient(ctx, accessToken)
	if err != nil {
		m.log.Warn("Login failed: sheets client", zap.Error(err))
		return nil, err
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	sess := &Session{
		ID:          uuid.NewString(),
		User:        user,
		AccessToken: accessToken,
		values:      values,
	}

	if err := m.store.Set(ctx, sess.ID, KeyUser, string(userJSON)); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if err := m.store.Set(ctx, sess.ID, KeyAccessToken, accessToken); err != nil {
		m.clear(ctx, sess.ID)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	m.log.Info("User signed in", zap.String("session", sess.ID), zap.String("email", user.Email))
	return sess, nil
}

// Restore loads a saved session. A session whose client cannot be
// initialized again is cleared.
func (m *Manager) Restore(ctx context.Context, sessionID string) (*Session, error) {
	userJSON, hasUser, err := m.store.Get(ctx, sessionID, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	token, hasToken, err := m.store.Get(ctx, sessionID, KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !hasUser || !hasToken {
		return nil, apperr.RemoteUnavailable("Not signed in. Please sign in.")
	}

	var user models.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		m.clear(ctx, sessionID)
		return nil, &apperr.Error{Kind: apperr.KindRemoteUnavailable, Message: "Session expired. Please sign in again.", Err: err}
	}

	values, err := m.newClient(ctx, token)
	if err != nil {
		m.log.Warn("Failed to restore session", zap.String("session", sessionID), zap.Error(err))
		m.clear(ctx, sessionID)
		return nil, &apperr.Error{Kind: apperr.KindRemoteUnavailable, Message: "Session expired. Please sign in again.", Err: err}
	}

	return &Session{ID: sessionID, User: user, AccessToken: token, values: values}, nil
}

// SignOut removes both persisted values.
func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID, KeyUser, KeyAccessToken); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	m.log.Info("User signed out", zap.String("session", sessionID))
	return nil
}

func (m *Manager) clear(ctx context.Context, sessionID string) {
	if err := m.store.Delete(ctx, sessionID, KeyUser, KeyAccessToken); err != nil {
		m.log.Error("Failed to clear session", zap.String("session", sessionID), zap.Error(err))
	}
}
