package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/auth"
	apperrors "github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/errors"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/store"
)

const (
	userKeyPrefix     = "user:"
	emailKeyPrefix    = "email:"
	apiKeyKeyPrefix   = "apikey:"
	userKeysKeyPrefix = "apikeys:"
)

// Service manages the user registry and API keys in the keyed store.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(s store.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  s,
		logger: logger.With(zap.String("component", "identity_service")),
	}
}

// Register creates a new user. Returns a conflict error when the email is
// already registered.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)

	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.UserAlreadyExists(email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	if err := store.PutJSON(ctx, s.store, userKeyPrefix+user.ID, user, 0); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to store user", 500)
	}
	if err := s.store.Put(ctx, emailKeyPrefix+email, []byte(user.ID), 0); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to index user", 500)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// GetByEmail looks a user up through the email index. Returns nil when the
// email is unknown.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	id, found, err := s.store.Get(ctx, emailKeyPrefix+normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return s.GetByID(ctx, string(id))
}

// GetByID returns the user with the given ID, or nil when unknown.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	found, err := store.GetJSON(ctx, s.store, userKeyPrefix+id, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// UpdateLastLogin records the successful login's time, IP, and location on
// the user, feeding the next attempt's geo-velocity signal.
func (s *Service) UpdateLastLogin(ctx context.Context, user *User, ip string, loc *risk.Location, at time.Time) error {
	user.LastLoginAt = at
	user.LastLoginIP = ip
	if loc != nil {
		user.LastLocation = loc
	}
	return store.PutJSON(ctx, s.store, userKeyPrefix+user.ID, user, 0)
}

// LastKnown returns the geo-velocity inputs from the user's previous login.
// Nil when the user has never logged in.
func (u *User) LastKnown() *risk.LastKnownLogin {
	if u == nil || u.LastLoginAt.IsZero() {
		return nil
	}
	return &risk.LastKnownLogin{
		Location:  u.LastLocation,
		LastLogin: u.LastLoginAt,
	}
}

// CreateAPIKey mints a new API key for the user. The key material appears
// only in the returned value.
func (s *Service) CreateAPIKey(ctx context.Context, userID, name string) (*APIKey, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperrors.Internal("Failed to generate key", err)
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Key:       "ak_" + hex.EncodeToString(raw),
		CreatedAt: time.Now(),
	}

	if err := store.PutJSON(ctx, s.store, apiKeyKeyPrefix+key.Key, key, 0); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to store API key", 500)
	}

	// Per-user listing keeps metadata only, never the key material
	var keys []APIKey
	listKey := userKeysKeyPrefix + userID
	if _, err := store.GetJSON(ctx, s.store, listKey, &keys); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to read API keys", 500)
	}
	keys = append(keys, APIKey{ID: key.ID, UserID: userID, Name: name, CreatedAt: key.CreatedAt})
	if err := store.PutJSON(ctx, s.store, listKey, keys, 0); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to store API keys", 500)
	}

	return key, nil
}

// ListAPIKeys returns the user's API key metadata.
func (s *Service) ListAPIKeys(ctx context.Context, userID string) ([]APIKey, error) {
	var keys []APIKey
	if _, err := store.GetJSON(ctx, s.store, userKeysKeyPrefix+userID, &keys); err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []APIKey{}
	}
	return keys, nil
}

// LookupAPIKey resolves raw key material to its record, or nil when unknown.
func (s *Service) LookupAPIKey(ctx context.Context, rawKey string) (*APIKey, error) {
	var key APIKey
	found, err := store.GetJSON(ctx, s.store, apiKeyKeyPrefix+rawKey, &key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &key, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// sanitize returns the user without credential material for API responses.
func (u *User) sanitize() map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID,
		"email":         u.Email,
		"created_at":    u.CreatedAt,
		"last_login_at": u.LastLoginAt,
	}
}
