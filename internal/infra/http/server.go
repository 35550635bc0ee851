package http

import (
	"context"
	"net/http"
	"time"

	"ohmage/internal/config"
	"ohmage/internal/domain"
	"ohmage/internal/infra/db"
	"ohmage/internal/infra/policyopa"
	"ohmage/internal/infra/ratelimit"
	"ohmage/internal/infra/tokenmem"
	"ohmage/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PolicyGate evaluates the optional admission policy for one request.
type PolicyGate interface {
	Evaluate(ctx context.Context, input domain.AdmissionPolicyInput) (domain.AdmissionPolicyResult, error)
}

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   *zap.Logger

	admission  *usecase.RequestAdmission
	loginUC    *usecase.IssueAuthenticationToken
	refreshUC  *usecase.RefreshAuthenticationToken
	logoutUC   *usecase.InvalidateAuthenticationToken
	grantUC    *usecase.GrantAuthorizationCode
	exchangeUC *usecase.ExchangeAuthorizationToken
	revokeUC   *usecase.RevokeAuthorizationToken
	userUC     *usecase.CreateUser
	clientUC   *usecase.RegisterClient
	audit      *usecase.AuditEmitter

	policy        PolicyGate
	policyInitErr error

	rateLimiter          domain.RateLimiter
	rateLimitRequests    int
	rateLimitWindow      time.Duration
	rateLimitWithSubject bool
	rateLimitFailClosed  bool
	rateLimitSubjectMax  int
	rateLimitSubjectHash bool
}

func NewServer(cfg config.Config, store *db.Store, logger *zap.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r, log: logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Admission      *usecase.RequestAdmission
	Login          *usecase.IssueAuthenticationToken
	Refresh        *usecase.RefreshAuthenticationToken
	Logout         *usecase.InvalidateAuthenticationToken
	Grant          *usecase.GrantAuthorizationCode
	Exchange       *usecase.ExchangeAuthorizationToken
	Revoke         *usecase.RevokeAuthorizationToken
	CreateUser     *usecase.CreateUser
	RegisterClient *usecase.RegisterClient
	Audit          *usecase.AuditEmitter
	Policy         PolicyGate
	RateLimiter    domain.RateLimiter
	Logger         *zap.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:        cfg,
		r:          r,
		log:        deps.Logger,
		admission:  deps.Admission,
		loginUC:    deps.Login,
		refreshUC:  deps.Refresh,
		logoutUC:   deps.Logout,
		grantUC:    deps.Grant,
		exchangeUC: deps.Exchange,
		revokeUC:   deps.Revoke,
		userUC:     deps.CreateUser,
		clientUC:   deps.RegisterClient,
		audit:      deps.Audit,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.admission == nil {
		var authn usecase.AuthenticationTokenStore
		if deps.Refresh != nil {
			authn = deps.Refresh.Tokens
		} else if deps.Login != nil {
			authn = deps.Login.Tokens
		}
		var authz usecase.AuthorizationTokenStore
		if deps.Revoke != nil {
			authz = deps.Revoke.Tokens
		} else if deps.Exchange != nil {
			authz = deps.Exchange.Tokens
		}
		if authn != nil || authz != nil {
			s.admission = &usecase.RequestAdmission{
				AuthenticationTokens: authn,
				AuthorizationTokens:  authz,
			}
		}
	}
	s.initRateLimit(deps.RateLimiter)
	s.initPolicy(deps.Policy)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var (
		users    usecase.UserRepository
		clients  usecase.ClientRepository
		authn    usecase.AuthenticationTokenRepository
		authz    usecase.AuthorizationTokenRepository
		codes    usecase.AuthorizationCodeRepository
		auditLog usecase.AuditEventRepository
	)
	if s.store != nil && s.store.DB != nil {
		users = db.NewUserRepository(s.store.DB)
		clients = db.NewClientRepository(s.store.DB)
		authn = db.NewAuthenticationTokenRepository(s.store.DB)
		authz = db.NewAuthorizationTokenRepository(s.store.DB)
		codes = db.NewAuthorizationCodeRepository(s.store.DB)
		auditLog = db.NewAuditEventRepository(s.store.DB)
	} else {
		users = tokenmem.NewUserStore()
		clients = tokenmem.NewClientStore()
		authn = tokenmem.NewAuthenticationTokenStore()
		authz = tokenmem.NewAuthorizationTokenStore()
		codes = tokenmem.NewAuthorizationCodeStore()
		auditLog = tokenmem.NewAuditLog()
	}

	s.admission = &usecase.RequestAdmission{
		AuthenticationTokens: authn,
		AuthorizationTokens:  authz,
	}
	s.loginUC = &usecase.IssueAuthenticationToken{
		Users:         users,
		Tokens:        authn,
		TokenLifetime: s.cfg.AuthTokenLifetime(),
	}
	s.refreshUC = &usecase.RefreshAuthenticationToken{
		Tokens:        authn,
		TokenLifetime: s.cfg.AuthTokenLifetime(),
	}
	s.logoutUC = &usecase.InvalidateAuthenticationToken{Tokens: authn}
	s.grantUC = &usecase.GrantAuthorizationCode{
		Clients:      clients,
		Codes:        codes,
		CodeLifetime: s.cfg.AuthzCodeLifetime(),
	}
	s.exchangeUC = &usecase.ExchangeAuthorizationToken{
		Clients:       clients,
		Codes:         codes,
		Tokens:        authz,
		TokenLifetime: s.cfg.AuthzTokenLifetime(),
	}
	s.revokeUC = &usecase.RevokeAuthorizationToken{Tokens: authz}
	s.userUC = &usecase.CreateUser{Users: users, BcryptCost: s.cfg.BcryptCost}
	s.clientUC = &usecase.RegisterClient{Clients: clients, BcryptCost: s.cfg.BcryptCost}
	s.audit = usecase.NewAuditEmitter(auditLog, nil)

	s.initRateLimit(nil)
	s.initPolicy(nil)
}

func (s *Server) initPolicy(override PolicyGate) {
	if override != nil {
		s.policy = override
		return
	}
	if s.cfg.AdmissionPolicyBundle == "" {
		return
	}
	engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.AdmissionPolicyBundle)
	if err != nil {
		s.policyInitErr = err
		return
	}
	s.policy = engine
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitWithSubject = s.cfg.RateLimitIncludeSubject
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
	s.rateLimitSubjectMax = s.cfg.RateLimitSubjectMaxLen
	s.rateLimitSubjectHash = s.cfg.RateLimitSubjectHash
}

func (s *Server) routes() {
	s.r.Use(s.logRequests())
	s.r.Use(s.admit())

	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})
	s.r.GET("/config", s.handleServerConfig)

	auth := s.r.Group("/auth")
	{
		auth.POST("/token", s.handleLogin)
		auth.POST("/token/refresh", s.handleRefresh)
		auth.DELETE("/token", s.handleLogout)
		auth.GET("/whoami", s.handleWhoami)
	}

	oauth := s.r.Group("/oauth")
	{
		oauth.POST("/authorize", s.handleAuthorize)
		oauth.POST("/token", s.handleExchange)
		oauth.POST("/revoke", s.handleRevoke)
		oauth.GET("/userinfo", s.handleUserinfo)
	}

	s.r.POST("/clients", s.handleRegisterClient)
	s.r.POST("/users", s.handleCreateUser)

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

func (s *Server) Run() error {
	if s.policyInitErr != nil {
		return s.policyInitErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
