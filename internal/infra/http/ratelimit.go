package http

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ohmage/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	routeAuthToken        = "auth:token"
	routeAuthTokenRefresh = "auth:token:refresh"
	routeAuthLogout       = "auth:logout"
	routeAuthWhoami       = "auth:whoami"
	routeOAuthAuthorize   = "oauth:authorize"
	routeOAuthToken       = "oauth:token"
	routeOAuthRevoke      = "oauth:revoke"
	routeOAuthUserinfo    = "oauth:userinfo"
	routeClientsCreate    = "clients:create"
	routeUsersCreate      = "users:create"
	routeConfigRead       = "config:read"
	routeHealthz          = "healthz"
)

// Routes where the attempted subject (a username or client id) may be
// folded into the limiter key, so one guessed account cannot consume the
// whole per-address budget.
var subjectLimitedRoutes = map[string]bool{
	routeAuthToken:  true,
	routeOAuthToken: true,
}

func (s *Server) enforceRateLimit(c *gin.Context, routeID, subject string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := fmt.Sprintf("ip:%s:endpoint:%s", c.ClientIP(), routeID)
	if s.rateLimitWithSubject && subjectLimitedRoutes[routeID] && subject != "" {
		if s.rateLimitSubjectMax <= 0 || len(subject) <= s.rateLimitSubjectMax {
			if s.rateLimitSubjectHash {
				sum := sha256.Sum256([]byte(subject))
				key = key + ":subject_hash:" + hex.EncodeToString(sum[:])
			} else {
				key = key + ":subject:" + subject
			}
		}
	}

	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		resetUnix := decision.ResetAt.Unix()
		c.Header("RateLimit-Reset", strconv.FormatInt(resetUnix, 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
