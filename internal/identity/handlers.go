package identity

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/analytics"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/auth"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/challenge"
	apperrors "github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/common/errors"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/history"
	"github.com/vinzabe/Adaptive-Authentication-Engine-with-Auto-UAM-Escalation/internal/risk"
)

// Handler serves the authentication HTTP surface and drives the two-phase
// risk assessment around credential verification.
type Handler struct {
	users     *Service
	engine    *risk.RiskEngine
	collector *analytics.Collector
	verifier  *challenge.TurnstileVerifier
	tokens    *auth.TokenManager
	sessions  *auth.SessionManager
	history   *history.Repository
	logger    *zap.Logger
}

// NewHandler wires the login flow's collaborators.
func NewHandler(
	users *Service,
	engine *risk.RiskEngine,
	collector *analytics.Collector,
	verifier *challenge.TurnstileVerifier,
	tokens *auth.TokenManager,
	sessions *auth.SessionManager,
	hist *history.Repository,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:     users,
		engine:    engine,
		collector: collector,
		verifier:  verifier,
		tokens:    tokens,
		sessions:  sessions,
		history:   hist,
		logger:    logger.With(zap.String("component", "identity_handler")),
	}
}

// Register handles POST /api/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid registration request: "+err.Error()))
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful",
		"user_id": user.ID,
	})
}

// Login handles POST /api/login. The risk engine runs twice: a pending pass
// before credentials are checked, so challenges and blocks cannot be used to
// probe credential validity, and a resolved pass afterwards that records
// ground truth exactly once.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid login request: "+err.Error()))
		return
	}

	ctx := c.Request.Context()
	attempt := h.buildAttempt(c, req.Email)

	user, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		h.logger.Warn("User lookup failed", zap.Error(err))
	}
	var lastKnown *risk.LastKnownLogin
	if user != nil {
		attempt.UserID = user.ID
		lastKnown = user.LastKnown()
	}

	pending := h.engine.AssessRisk(ctx, attempt, risk.PhasePending, lastKnown)

	if pending.Level == risk.RiskLevelCritical {
		h.resolve(c, attempt, user, false, lastKnown)
		h.collector.RecordBlockedAttempt(attempt, pending)
		apperrors.HandleError(c, apperrors.RiskBlocked(pending.Composite))
		return
	}

	challengeType := h.engine.Router().GetChallengeType(pending.Level)
	if h.engine.Router().ShouldRequireChallenge(pending.Level) {
		if req.TurnstileToken == "" {
			// Deferred decision: demand proof of humanity before touching
			// credentials
			h.collector.RecordChallengeIssued(challengeType, attempt.Timestamp)
			c.JSON(http.StatusOK, loginResponse{
				Success:          false,
				Message:          "Additional verification required",
				RequireChallenge: true,
				ChallengeType:    string(challengeType),
				RiskScore:        pending.Composite,
			})
			return
		}

		result := h.verifier.Verify(ctx, req.TurnstileToken, attempt.IPAddress)
		h.collector.RecordChallengeCompleted(challengeType, result.Success, attempt.Timestamp)
		if attempt.DeviceFingerprint != "" {
			if _, err := h.engine.Reputation().RecordChallengeOutcome(ctx, attempt.DeviceFingerprint, result.Success, attempt.Timestamp); err != nil {
				h.logger.Warn("Challenge reputation update failed", zap.Error(err))
			}
		}
		if !result.Success {
			h.resolve(c, attempt, user, false, lastKnown)
			apperrors.HandleError(c, apperrors.New(apperrors.ErrChallengeFailed, "Challenge verification failed", http.StatusUnauthorized))
			return
		}
	}

	authOK := false
	if user != nil {
		ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
		if err != nil {
			h.logger.Warn("Password verification failed", zap.Error(err), zap.String("user_id", user.ID))
		}
		authOK = ok
	}

	resolved := h.resolve(c, attempt, user, authOK, lastKnown)

	if !authOK {
		apperrors.HandleError(c, apperrors.InvalidCredentials())
		return
	}

	if resolved.Level == risk.RiskLevelCritical {
		h.collector.RecordBlockedAttempt(attempt, resolved)
		apperrors.HandleError(c, apperrors.RiskBlocked(resolved.Composite))
		return
	}

	session, err := h.sessions.Create(ctx, user.ID, user.Email, attempt.IPAddress, attempt.UserAgent)
	if err != nil {
		apperrors.HandleError(c, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to create session", http.StatusInternalServerError))
		return
	}
	token, err := h.tokens.GenerateToken(user.ID, user.Email, session.ID)
	if err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to issue token", err))
		return
	}

	if err := h.users.UpdateLastLogin(ctx, user, attempt.IPAddress, attempt.Location, attempt.Timestamp); err != nil {
		h.logger.Warn("Last login update failed", zap.Error(err), zap.String("user_id", user.ID))
	}

	c.JSON(http.StatusOK, loginResponse{
		Success:   true,
		Token:     token,
		Message:   "Login successful",
		RiskScore: resolved.Composite,
	})
}

// resolve runs the resolved-phase assessment with the real outcome and writes
// the audit row. Exactly one resolved pass per logical attempt.
func (h *Handler) resolve(c *gin.Context, attempt risk.LoginAttempt, user *User, success bool, lastKnown *risk.LastKnownLogin) risk.RiskFactors {
	attempt.Success = success
	if user != nil {
		attempt.UserID = user.ID
	}

	factors := h.engine.AssessRisk(c.Request.Context(), attempt, risk.PhaseResolved, lastKnown)
	h.history.Record(c.Request.Context(), attempt, factors)
	return factors
}

// VerifyChallenge handles POST /api/verify-challenge.
func (h *Handler) VerifyChallenge(c *gin.Context) {
	var req verifyChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid challenge request: "+err.Error()))
		return
	}

	token := req.TurnstileToken
	challengeType := risk.ChallengeTurnstile
	if token == "" && req.ManagedResponse != "" {
		// Managed challenges resolve through the same verification endpoint
		token = req.ManagedResponse
		challengeType = risk.ChallengeManaged
	}

	result := h.verifier.Verify(c.Request.Context(), token, c.ClientIP())
	h.collector.RecordChallengeCompleted(challengeType, result.Success, time.Now())

	fingerprint := risk.Fingerprint(c.Request.UserAgent(), c.ClientIP())
	if _, err := h.engine.Reputation().RecordChallengeOutcome(c.Request.Context(), fingerprint, result.Success, time.Now()); err != nil {
		h.logger.Warn("Challenge reputation update failed", zap.Error(err))
	}

	if !result.Success {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "Challenge verification failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Challenge passed",
	})
}

// Metrics handles GET /api/metrics.
func (h *Handler) Metrics(c *gin.Context) {
	m, err := h.collector.GetMetrics(c.Request.Context(), c.Query("date"))
	if err != nil {
		apperrors.HandleError(c, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to read metrics", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, m)
}

// CurrentUser handles GET /api/user.
func (h *Handler) CurrentUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.GetString("user_id"))
	if err != nil || user == nil {
		apperrors.HandleError(c, apperrors.Unauthorized("User not found"))
		return
	}
	c.JSON(http.StatusOK, user.sanitize())
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(c *gin.Context) {
	sessionID := c.GetString("session_id")
	if sessionID != "" {
		if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
			h.logger.Warn("Session delete failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
}

// CreateAPIKey handles POST /api/apikeys.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.BadRequest("Invalid API key request: "+err.Error()))
		return
	}

	key, err := h.users.CreateAPIKey(c.Request.Context(), c.GetString("user_id"), req.Name)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

// ListAPIKeys handles GET /api/apikeys.
func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.users.ListAPIKeys(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		apperrors.HandleError(c, apperrors.Wrap(err, apperrors.ErrStoreError, "Failed to list API keys", http.StatusInternalServerError))
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// LoginHistory handles GET /api/user/history.
func (h *Handler) LoginHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.history.ListForUser(c.Request.Context(), c.GetString("user_id"), limit)
	if err != nil {
		apperrors.HandleError(c, apperrors.Internal("Failed to read login history", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// RequireAuth validates the bearer token and its backing session.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			apperrors.HandleError(c, apperrors.Unauthorized("Missing bearer token"))
			c.Abort()
			return
		}

		claims, err := h.tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			apperrors.HandleError(c, apperrors.InvalidToken(err.Error()))
			c.Abort()
			return
		}

		session, err := h.sessions.Get(c.Request.Context(), claims.SessionID)
		if err != nil || session == nil {
			apperrors.HandleError(c, apperrors.Unauthorized("Session expired"))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("session_id", claims.SessionID)
		c.Next()
	}
}

// buildAttempt assembles the pipeline's unit of work from the request.
func (h *Handler) buildAttempt(c *gin.Context, email string) risk.LoginAttempt {
	ip := c.ClientIP()
	ua := c.Request.UserAgent()

	return risk.LoginAttempt{
		Timestamp:         time.Now(),
		IPAddress:         ip,
		Username:          normalizeEmail(email),
		UserAgent:         ua,
		Location:          locationFromHeaders(c),
		DeviceFingerprint: risk.Fingerprint(ua, ip),
		AuthMethod:        "password",
	}
}

// locationFromHeaders reads the edge network's geolocation headers. Absent or
// unparsable headers yield no location, which is a valid attempt state.
func locationFromHeaders(c *gin.Context) *risk.Location {
	latStr := c.GetHeader("X-Geo-Latitude")
	lonStr := c.GetHeader("X-Geo-Longitude")
	if latStr == "" || lonStr == "" {
		return nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil
	}

	return &risk.Location{
		Country:   c.GetHeader("CF-IPCountry"),
		City:      c.GetHeader("X-Geo-City"),
		Latitude:  lat,
		Longitude: lon,
		Timezone:  c.GetHeader("X-Geo-Timezone"),
	}
}
