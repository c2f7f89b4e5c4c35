package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	sessionKeyPrefix = "session:"
	sessionTTL       = 24 * time.Hour
)

// Session is a server-side login session, stored with a 24-hour TTL.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager persists sessions in the keyed store.
type SessionManager struct {
	store store.Store
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(s store.Store) *SessionManager {
	return &SessionManager{store: s}
}

// Create stores a new session for the user and returns it.
func (m *SessionManager) Create(ctx context.Context, userID, email, ip, userAgent string) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
	}

	if err := store.PutJSON(ctx, m.store, sessionKeyPrefix+session.ID, session, sessionTTL); err != nil {
		return nil, err
	}
	return session, nil
}

// Get returns the session with the given ID, or nil when expired or unknown.
func (m *SessionManager) Get(ctx context.Context, id string) (*Session, error) {
	var session Session
	found, err := store.GetJSON(ctx, m.store, sessionKeyPrefix+id, &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

// Delete removes a session, logging the user out server-side.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, sessionKeyPrefix+id)
}
