package http

import (
	"errors"
	"net/http"

	"ohmage/internal/domain"
	"ohmage/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const requestContextKey = "request_context"

// admit resolves the request's credentials before any handler runs. A
// conflicting or unknown credential ends the request here with a 401;
// a request carrying no credentials passes through as anonymous. The
// resolved context is attached under both the gin key and the stdlib
// context so every downstream stage observes the same values.
func (s *Server) admit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.admission == nil {
			c.Next()
			return
		}
		creds, err := collectCredentials(c.Request)
		if err != nil {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_FORM", "malformed form body")
			c.Abort()
			return
		}
		rc, err := s.admission.Resolve(c.Request.Context(), creds)
		if err != nil {
			s.denyAdmission(c, err)
			return
		}
		if !s.admitByPolicy(c, rc) {
			return
		}
		c.Set(requestContextKey, rc)
		c.Request = c.Request.WithContext(domain.WithRequestContext(c.Request.Context(), rc))
		c.Next()
	}
}

// collectCredentials hands the resolver the request exactly as received.
// ParseForm merges the query string with a form-encoded body, so a token
// posted in the body counts as a parameter occurrence; JSON bodies are
// left untouched for the handlers.
func collectCredentials(r *http.Request) (usecase.Credentials, error) {
	if err := r.ParseForm(); err != nil {
		return usecase.Credentials{}, err
	}
	return usecase.Credentials{
		Cookies:    r.Cookies(),
		Parameters: r.Form,
		Headers:    r.Header,
	}, nil
}

func (s *Server) denyAdmission(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrCredentialConflict):
		s.auditAdmissionDenied(c, err)
		writeErrorCode(c, http.StatusUnauthorized, "CREDENTIAL_CONFLICT", err.Error())
	case errors.Is(err, domain.ErrCredentialUnknown):
		s.auditAdmissionDenied(c, err)
		writeErrorCode(c, http.StatusUnauthorized, "CREDENTIAL_UNKNOWN", err.Error())
	default:
		// Store failures are not a credential problem.
		writeError(c, err)
	}
	c.Abort()
}

// admitByPolicy runs the optional Rego gate over the resolved context.
// Unmatched routes are skipped; the NoRoute 404 needs no policy.
func (s *Server) admitByPolicy(c *gin.Context, rc domain.RequestContext) bool {
	if s.policy == nil {
		return true
	}
	route := requestRouteID(c)
	if route == "" {
		return true
	}
	input := domain.AdmissionPolicyInput{
		Route:              route,
		Method:             c.Request.Method,
		Authenticated:      rc.Authenticated(),
		Username:           rc.Username(),
		TokenFromParameter: rc.TokenIsFromParameter,
	}
	if rc.AuthorizationToken != nil {
		input.ClientID = rc.AuthorizationToken.ClientID
		input.Scopes = rc.AuthorizationToken.Scopes
	}
	result, err := s.policy.Evaluate(c.Request.Context(), input)
	if err != nil {
		s.log.Error("admission policy evaluation failed",
			zap.String("route", route),
			zap.Error(err),
		)
		writeErrorCode(c, http.StatusInternalServerError, "POLICY_ERROR", "admission policy evaluation failed")
		c.Abort()
		return false
	}
	if !result.Allow {
		deny := make([]map[string]string, 0, len(result.Deny))
		for _, entry := range result.Deny {
			deny = append(deny, map[string]string{"code": entry.Code, "message": entry.Message})
		}
		s.auditAdmissionDenied(c, errors.New("denied by admission policy"))
		writeErrorDetails(c, http.StatusForbidden, "POLICY_DENIED", "denied by admission policy", map[string]any{
			"deny": deny,
		})
		c.Abort()
		return false
	}
	return true
}

func (s *Server) auditAdmissionDenied(c *gin.Context, err error) {
	if s.audit == nil {
		return
	}
	if emitErr := s.audit.EmitAdmissionDenied(c.Request.Context(), c.ClientIP(), err.Error()); emitErr != nil {
		s.log.Warn("audit append failed", zap.Error(emitErr))
	}
}

func getRequestContext(c *gin.Context) (domain.RequestContext, bool) {
	raw, ok := c.Get(requestContextKey)
	if !ok {
		return domain.RequestContext{}, false
	}
	rc, ok := raw.(domain.RequestContext)
	return rc, ok
}

// requireUser admits only requests whose resolved context carries an
// authentication token supplied from an accepted location. State-changing
// routes pass TokenLocationParameter so a bare cookie cannot drive them.
func (s *Server) requireUser(c *gin.Context, location domain.TokenLocation) (domain.RequestContext, bool) {
	rc, ok := getRequestContext(c)
	if !ok || rc.AuthenticationToken == nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return domain.RequestContext{}, false
	}
	if !location.Permits(rc.TokenIsFromParameter) {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "token not accepted from this location")
		return domain.RequestContext{}, false
	}
	return rc, true
}

// requireScope admits only requests carrying a third-party bearer token
// granted the named scope.
func (s *Server) requireScope(c *gin.Context, scope string) (domain.RequestContext, bool) {
	rc, ok := getRequestContext(c)
	if !ok || rc.AuthorizationToken == nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "bearer token required")
		return domain.RequestContext{}, false
	}
	if !rc.AuthorizationToken.HasScope(scope) {
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "scope "+scope+" required")
		return domain.RequestContext{}, false
	}
	return rc, true
}

func requestRouteID(c *gin.Context) string {
	switch c.Request.Method + " " + c.FullPath() {
	case "POST /auth/token":
		return routeAuthToken
	case "POST /auth/token/refresh":
		return routeAuthTokenRefresh
	case "DELETE /auth/token":
		return routeAuthLogout
	case "GET /auth/whoami":
		return routeAuthWhoami
	case "POST /oauth/authorize":
		return routeOAuthAuthorize
	case "POST /oauth/token":
		return routeOAuthToken
	case "POST /oauth/revoke":
		return routeOAuthRevoke
	case "GET /oauth/userinfo":
		return routeOAuthUserinfo
	case "POST /clients":
		return routeClientsCreate
	case "POST /users":
		return routeUsersCreate
	case "GET /config":
		return routeConfigRead
	case "GET /healthz":
		return routeHealthz
	}
	return ""
}
