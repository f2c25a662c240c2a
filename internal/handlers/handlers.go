package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"natours/api/internal/config"
	"natours/api/internal/metrics"
	"natours/api/internal/middleware"
	"natours/api/internal/models"
	"natours/api/internal/security"
	"natours/api/internal/service"
)

// Accounts is the account side of the auth core.
type Accounts interface {
	Signup(ctx context.Context, input service.SignupInput) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	ChangePassword(ctx context.Context, userID, current, next, confirm string) (service.AuthResult, error)
	Authenticate(ctx context.Context, token string) (models.User, security.SessionInfo, error)
	Deactivate(ctx context.Context, userID string) error
	GetUser(ctx context.Context, id string) (models.User, error)
}

type Resets interface {
	RequestReset(ctx context.Context, email, linkBase string) error
	ResetPassword(ctx context.Context, token, password, confirm string) (service.AuthResult, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger adapts a redis client to Pinger.
type RedisPinger struct {
	Client redis.UniversalClient
}

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

type Deps struct {
	Accounts Accounts
	Resets   Resets
	DB       Pinger
	Cache    Pinger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	accounts Accounts
	resets   Resets
	db       Pinger
	cache    Pinger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		accounts: deps.Accounts,
		resets:   deps.Resets,
		db:       deps.DB,
		cache:    deps.Cache,
		metrics:  deps.Metrics,
		now:      now,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/session", middleware.Identify(h.accounts), h.Session)

	users := v1.Group("/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("/logout", h.Logout)
		users.POST("/forgotPassword", h.ForgotPassword)
		users.PATCH("/resetPassword/:token", h.ResetPassword)

		protected := users.Group("")
		protected.Use(middleware.Protect(h.accounts))
		protected.PATCH("/updateMyPassword", h.UpdateMyPassword)
		protected.GET("/me", h.Me)
		protected.DELETE("/deleteMe", h.DeleteMe)
		protected.GET("/:id",
			middleware.RequireRoles(models.RoleAdministrator, models.RoleLeadOperator),
			h.GetUser,
		)
	}
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
