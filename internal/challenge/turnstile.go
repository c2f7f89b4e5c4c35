// Package challenge verifies proof-of-humanity challenge responses against
// the Cloudflare Turnstile siteverify API.
package challenge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultVerifyURL is the Cloudflare Turnstile siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

const verifyTimeout = 5 * time.Second

// VerifyResult is the siteverify response.
type VerifyResult struct {
	Success     bool     `json:"success"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
}

// TurnstileVerifier verifies Turnstile tokens. Any transport failure maps to
// an unsuccessful result so a verification outage can never pass a challenge.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewTurnstileVerifier creates a verifier. verifyURL falls back to the
// Cloudflare endpoint when empty.
func NewTurnstileVerifier(secret, verifyURL string, logger *zap.Logger) *TurnstileVerifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &TurnstileVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: verifyTimeout},
		logger:    logger.With(zap.String("component", "turnstile")),
	}
}

// Verify posts the token to siteverify. remoteIP is optional.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) VerifyResult {
	if token == "" {
		return VerifyResult{Success: false, ErrorCodes: []string{"missing-input-response"}}
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return v.networkFailure(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return v.networkFailure(err)
	}
	defer resp.Body.Close()

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return v.networkFailure(err)
	}

	return result
}

// networkFailure fails closed: a verification we could not complete is a
// failed verification.
func (v *TurnstileVerifier) networkFailure(err error) VerifyResult {
	v.logger.Warn("Turnstile verification failed", zap.Error(err))
	return VerifyResult{Success: false, ErrorCodes: []string{"network-error"}}
}
