// Package identity implements the user registry and the HTTP login flow that
// drives the risk pipeline.
package identity

import (
	"time"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
)

// User is one registered account, stored under user:<id> with an email index
// under email:<email>.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	CreatedAt    time.Time      `json:"created_at"`
	LastLoginAt  time.Time      `json:"last_login_at,omitempty"`
	LastLoginIP  string         `json:"last_login_ip,omitempty"`
	LastLocation *risk.Location `json:"last_location,omitempty"`
}

// APIKey is a long-lived credential for programmatic access. The key material
// is returned once at creation and stored only under its own lookup key.
type APIKey struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Key       string    `json:"key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// registerRequest is the POST /api/register body.
type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// loginRequest is the POST /api/login body.
type loginRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	TurnstileToken string `json:"turnstileToken"`
}

// loginResponse is the POST /api/login 200 body.
type loginResponse struct {
	Success          bool    `json:"success"`
	Token            string  `json:"token,omitempty"`
	Message          string  `json:"message"`
	RequireChallenge bool    `json:"requireChallenge,omitempty"`
	ChallengeType    string  `json:"challengeType,omitempty"`
	RiskScore        float64 `json:"riskScore,omitempty"`
}

// verifyChallengeRequest is the POST /api/verify-challenge body.
type verifyChallengeRequest struct {
	TurnstileToken  string `json:"turnstileToken"`
	ManagedResponse string `json:"managedResponse"`
}

// createAPIKeyRequest is the POST /api/apikeys body.
type createAPIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}
