// Package history persists a durable per-user login audit trail in Postgres.
// Writes are best effort; an unavailable database never blocks a login.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/database"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
)

// Entry is one audited login attempt.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Success     bool      `json:"success"`
	RiskScore   float64   `json:"risk_score"`
	RiskLevel   string    `json:"risk_level"`
	Country     string    `json:"country,omitempty"`
	City        string    `json:"city,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository stores and queries login history rows.
type Repository struct {
	db     *database.PostgresDB
	logger *zap.Logger
}

// NewRepository creates a Repository. db may be nil, in which case all
// operations are no-ops.
func NewRepository(db *database.PostgresDB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With(zap.String("component", "login_history")),
	}
}

// Migrate creates the login_history table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS login_history (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			ip_address TEXT NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			success BOOLEAN NOT NULL,
			risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			risk_level TEXT NOT NULL DEFAULT 'low',
			country TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_login_history_user_created
			ON login_history (user_id, created_at DESC)
	`)
	return err
}

// Record inserts one audit row. Failures are logged, not returned; the audit
// trail must never block the login path.
func (r *Repository) Record(ctx context.Context, attempt risk.LoginAttempt, factors risk.RiskFactors) {
	if r.db == nil || attempt.UserID == "" {
		return
	}

	country, city := "", ""
	if attempt.Location != nil {
		country = attempt.Location.Country
		city = attempt.Location.City
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO login_history
			(id, user_id, ip_address, user_agent, success, risk_score, risk_level,
			 country, city, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.New().String(), attempt.UserID, attempt.IPAddress, attempt.UserAgent,
		attempt.Success, factors.Composite, string(factors.Level),
		country, city, attempt.DeviceFingerprint, attempt.Timestamp,
	)
	if err != nil {
		r.logger.Warn("Login history insert failed",
			zap.Error(err),
			zap.String("user_id", attempt.UserID))
	}
}

// ListForUser returns the user's most recent entries, newest first.
func (r *Repository) ListForUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if r.db == nil {
		return []Entry{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, ip_address, user_agent, success, risk_score,
		       risk_level, country, city, fingerprint, created_at
		FROM login_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.IPAddress, &e.UserAgent, &e.Success,
			&e.RiskScore, &e.RiskLevel, &e.Country, &e.City, &e.Fingerprint, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
