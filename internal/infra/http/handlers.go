package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"ohmage/internal/domain"
	"ohmage/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const scopeProfile = "profile"

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	Expires      string `json:"expires"`
}

type whoamiResponse struct {
	Username           string   `json:"username"`
	TokenFromParameter bool     `json:"token_from_parameter"`
	TokenExpires       string   `json:"token_expires"`
	ClientID           string   `json:"client_id,omitempty"`
	Scopes             []string `json:"scopes,omitempty"`
}

type authorizeRequest struct {
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

type codeResponse struct {
	Code     string   `json:"code"`
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
	Expires  string   `json:"expires"`
}

type exchangeRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

type bearerTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

type revokeRequest struct {
	Token string `json:"token"`
}

type userinfoResponse struct {
	Username string   `json:"username"`
	ClientID string   `json:"client_id"`
	Scopes   []string `json:"scopes"`
}

type registerClientRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type clientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Name         string `json:"name"`
	Owner        string `json:"owner"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type serverConfigResponse struct {
	ApplicationName           string `json:"application_name"`
	ApplicationVersion        string `json:"application_version"`
	ApplicationBuild          string `json:"application_build"`
	AuthTokenLifetimeSeconds  int    `json:"auth_token_lifetime_seconds"`
	AuthzTokenLifetimeSeconds int    `json:"authz_token_lifetime_seconds"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if s.loginUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.enforceRateLimit(c, routeAuthToken, req.Username) {
		return
	}
	resp, err := s.loginUC.Execute(c.Request.Context(), usecase.IssueAuthenticationTokenRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if s.audit != nil {
			s.auditErr(s.audit.EmitLogin(c.Request.Context(), req.Username, c.ClientIP(), domain.AuditResultFailure, err.Error()))
		}
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitLogin(c.Request.Context(), resp.Token.Username, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	setAuthTokenCookie(c, resp.Token)
	c.JSON(http.StatusOK, buildTokenResponse(resp.Token))
}

func (s *Server) handleRefresh(c *gin.Context) {
	if s.refreshUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	resp, err := s.refreshUC.Execute(c.Request.Context(), usecase.RefreshAuthenticationTokenRequest{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		if s.audit != nil {
			s.auditErr(s.audit.EmitTokenRefreshed(c.Request.Context(), "", c.ClientIP(), domain.AuditResultFailure, err.Error()))
		}
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitTokenRefreshed(c.Request.Context(), resp.Token.Username, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	setAuthTokenCookie(c, resp.Token)
	c.JSON(http.StatusOK, buildTokenResponse(resp.Token))
}

// handleLogout requires the token as a parameter, not just a cookie, so a
// cross-site request riding on the browser's cookie jar cannot end the
// session.
func (s *Server) handleLogout(c *gin.Context) {
	if s.logoutUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	rc, ok := s.requireUser(c, domain.TokenLocationParameter)
	if !ok {
		return
	}
	if err := s.logoutUC.Execute(c.Request.Context(), usecase.InvalidateAuthenticationTokenRequest{
		AccessToken: rc.AuthenticationToken.AccessToken,
	}); err != nil {
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitTokenInvalidated(c.Request.Context(), rc.AuthenticationToken.Username, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	clearAuthTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleWhoami(c *gin.Context) {
	rc, ok := s.requireUser(c, domain.TokenLocationEither)
	if !ok {
		return
	}
	out := whoamiResponse{
		Username:           rc.AuthenticationToken.Username,
		TokenFromParameter: rc.TokenIsFromParameter,
		TokenExpires:       rc.AuthenticationToken.Expires.UTC().Format(time.RFC3339),
	}
	if rc.AuthorizationToken != nil {
		out.ClientID = rc.AuthorizationToken.ClientID
		out.Scopes = rc.AuthorizationToken.Scopes
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAuthorize(c *gin.Context) {
	if s.grantUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	rc, ok := s.requireUser(c, domain.TokenLocationEither)
	if !ok {
		return
	}
	var req authorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	resp, err := s.grantUC.Execute(c.Request.Context(), usecase.GrantAuthorizationCodeRequest{
		Username: rc.AuthenticationToken.Username,
		ClientID: req.ClientID,
		Scopes:   req.Scopes,
	})
	if err != nil {
		if s.audit != nil {
			s.auditErr(s.audit.EmitCodeGranted(c.Request.Context(), rc.AuthenticationToken.Username, req.ClientID, c.ClientIP(), domain.AuditResultFailure, err.Error()))
		}
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitCodeGranted(c.Request.Context(), resp.Code.Username, resp.Code.ClientID, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	c.JSON(http.StatusOK, codeResponse{
		Code:     resp.Code.Code,
		ClientID: resp.Code.ClientID,
		Scopes:   resp.Code.Scopes,
		Expires:  resp.Code.Expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleExchange(c *gin.Context) {
	if s.exchangeUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	clientID, clientSecret := req.ClientID, req.ClientSecret
	if id, secret, ok := c.Request.BasicAuth(); ok {
		clientID, clientSecret = id, secret
	}
	if !s.enforceRateLimit(c, routeOAuthToken, clientID) {
		return
	}
	resp, err := s.exchangeUC.Execute(c.Request.Context(), usecase.ExchangeAuthorizationTokenRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		GrantType:    req.GrantType,
		Code:         req.Code,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		if s.audit != nil {
			s.auditErr(s.audit.EmitTokenExchanged(c.Request.Context(), clientID, c.ClientIP(), domain.AuditResultFailure, err.Error()))
		}
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitTokenExchanged(c.Request.Context(), clientID, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	c.JSON(http.StatusOK, buildBearerTokenResponse(resp.Token))
}

// handleRevoke withdraws a bearer token. The caller's identity comes from
// admission: the granting user by session token, or the holding client by
// one of its own bearer tokens.
func (s *Server) handleRevoke(c *gin.Context) {
	if s.revokeUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	rc, ok := getRequestContext(c)
	if !ok || (rc.AuthenticationToken == nil && rc.AuthorizationToken == nil) {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	ucReq := usecase.RevokeAuthorizationTokenRequest{AccessToken: req.Token}
	if rc.AuthenticationToken != nil {
		ucReq.Username = rc.AuthenticationToken.Username
	}
	if rc.AuthorizationToken != nil {
		ucReq.ClientID = rc.AuthorizationToken.ClientID
	}
	if err := s.revokeUC.Execute(c.Request.Context(), ucReq); err != nil {
		if s.audit != nil {
			s.auditErr(s.audit.EmitTokenRevoked(c.Request.Context(), ucReq.Username, ucReq.ClientID, c.ClientIP(), domain.AuditResultFailure, err.Error()))
		}
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitTokenRevoked(c.Request.Context(), ucReq.Username, ucReq.ClientID, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUserinfo(c *gin.Context) {
	rc, ok := s.requireScope(c, scopeProfile)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userinfoResponse{
		Username: rc.AuthorizationToken.Username,
		ClientID: rc.AuthorizationToken.ClientID,
		Scopes:   rc.AuthorizationToken.Scopes,
	})
}

func (s *Server) handleRegisterClient(c *gin.Context) {
	if s.clientUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	rc, ok := s.requireUser(c, domain.TokenLocationEither)
	if !ok {
		return
	}
	var req registerClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	resp, err := s.clientUC.Execute(c.Request.Context(), usecase.RegisterClientRequest{
		Name:        req.Name,
		Description: req.Description,
		Owner:       rc.AuthenticationToken.Username,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitClientRegistered(c.Request.Context(), resp.Client.Owner, resp.Client.ID, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	c.JSON(http.StatusOK, clientResponse{
		ClientID:     resp.Client.ID,
		ClientSecret: resp.Secret,
		Name:         resp.Client.Name,
		Owner:        resp.Client.Owner,
	})
}

func (s *Server) handleCreateUser(c *gin.Context) {
	if s.userUC == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.enforceRateLimit(c, routeUsersCreate, "") {
		return
	}
	resp, err := s.userUC.Execute(c.Request.Context(), usecase.CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		if s.audit != nil {
			s.auditErr(s.audit.EmitUserCreated(c.Request.Context(), req.Username, c.ClientIP(), domain.AuditResultFailure, err.Error()))
		}
		writeError(c, err)
		return
	}
	if s.audit != nil {
		s.auditErr(s.audit.EmitUserCreated(c.Request.Context(), resp.User.Username, c.ClientIP(), domain.AuditResultSuccess, ""))
	}
	c.JSON(http.StatusOK, gin.H{"username": resp.User.Username})
}

// handleServerConfig serves the public application document clients read
// before authenticating.
func (s *Server) handleServerConfig(c *gin.Context) {
	doc := s.cfg.ServerConfig()
	c.JSON(http.StatusOK, serverConfigResponse{
		ApplicationName:           doc.AppName,
		ApplicationVersion:        doc.AppVersion,
		ApplicationBuild:          doc.AppBuild,
		AuthTokenLifetimeSeconds:  int(doc.AuthTokenLifetime / time.Second),
		AuthzTokenLifetimeSeconds: int(doc.AuthzTokenLifetime / time.Second),
	})
}

func buildTokenResponse(token domain.AuthenticationToken) tokenResponse {
	return tokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Username:     token.Username,
		Expires:      token.Expires.UTC().Format(time.RFC3339),
	}
}

func buildBearerTokenResponse(token domain.AuthorizationToken) bearerTokenResponse {
	return bearerTokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(token.Expires.Sub(token.Granted).Seconds()),
		RefreshToken: token.RefreshToken,
		Scope:        strings.Join(token.Scopes, " "),
	}
}

// setAuthTokenCookie mirrors the issued token as an auth_token cookie so
// browser clients authenticate without replaying credentials.
func setAuthTokenCookie(c *gin.Context, token domain.AuthenticationToken) {
	maxAge := int(token.Expires.Sub(token.Granted).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetCookie(usecase.AuthenticationTokenKey, token.AccessToken, maxAge, "/", "", false, true)
}

func clearAuthTokenCookie(c *gin.Context) {
	c.SetCookie(usecase.AuthenticationTokenKey, "", -1, "/", "", false, true)
}

func (s *Server) auditErr(err error) {
	if err != nil {
		s.log.Warn("audit append failed", zap.Error(err))
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrCredentialConflict):
		status, code = http.StatusUnauthorized, "CREDENTIAL_CONFLICT"
	case errors.Is(err, domain.ErrCredentialUnknown):
		status, code = http.StatusUnauthorized, "CREDENTIAL_UNKNOWN"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrAccountDisabled):
		status, code = http.StatusForbidden, "ACCOUNT_DISABLED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = http.StatusConflict, "ALREADY_EXISTS"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func writeErrorDetails(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
