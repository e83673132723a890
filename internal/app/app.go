package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/handler"
	"github.com/gatehouse/gatehouse/internal/hook"
	"github.com/gatehouse/gatehouse/internal/notify"
	"github.com/gatehouse/gatehouse/internal/repository"
	"github.com/gatehouse/gatehouse/internal/service"
	"github.com/gatehouse/gatehouse/internal/token"
	"github.com/gatehouse/gatehouse/pkg/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// NewApp wires repositories, services and handlers into the HTTP server.
func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()

	repos := repository.NewRepositories(infra.Postgres().DB)
	tokens := token.NewManager(&cfg.JWT, cfg.OperatorToken)
	hooks := hook.NewDispatcher(tokens, logger)

	notifier, err := notify.NewNotifier(
		&cfg.Mail,
		cfg.SiteURL,
		notify.NewSMTPMailer(&cfg.Mail),
		notify.NewTwilioSender(&cfg.SMS),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}

	services := service.NewServices(service.Deps{
		Config:   cfg,
		Repos:    repos,
		Tokens:   tokens,
		Hooks:    hooks,
		Notifier: notifier,
		Logger:   logger,
	})

	authMetrics, err := observability.NewAuthMetrics(infra.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to build auth metrics: %w", err)
	}

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("gatehouse"))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(&cfg.CORS))

	setupRoutes(router, cfg, infra, services, repos, tokens, rateLimiter, healthChecker, authMetrics, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// metricsFor counts terminal outcomes for one operation kind.
func metricsFor(metrics *observability.AuthMetrics, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		metrics.Record(c.Request.Context(), kind, c.Writer.Status() < 400)
	}
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	infra Infrastructure,
	services *service.Services,
	repos *repository.Repositories,
	tokens *token.Manager,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	authMetrics *observability.AuthMetrics,
	logger *zap.Logger,
) {
	router.GET("/metrics", observability.PrometheusHandler(infra.MetricsHandler()))
	router.GET("/health", healthChecker.Handler)

	authHandler := handler.NewAuthHandler(services.Auth, services.Account)
	userHandler := handler.NewUserHandler(services.Account)
	adminHandler := handler.NewAdminHandler(services.Admin)
	oauthHandler := handler.NewOAuthHandler(services.OAuth, cfg.SiteURL)

	throttle := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		logger,
	)

	// The vendor redirects the browser here; it cannot carry an operator
	// signature. Hook and redirect behavior fall back to instance defaults.
	router.GET("/authorize/callback", metricsFor(authMetrics, "oauth"), oauthHandler.Callback)

	signed := router.Group("", handler.OperatorSignatureMiddleware(tokens))
	{
		signed.POST("/signup", throttle, metricsFor(authMetrics, "signup"), authHandler.Signup)
		signed.POST("/token", throttle, metricsFor(authMetrics, "token"), authHandler.Token)
		signed.POST("/confirm", metricsFor(authMetrics, "confirm"), authHandler.Confirm)
		signed.POST("/resend", throttle, authHandler.Resend)
		signed.POST("/reset", throttle, authHandler.Reset)
		signed.POST("/reset/confirm", authHandler.ResetConfirm)
		signed.POST("/invite/accept", authHandler.AcceptInvite)
		signed.POST("/user/change/confirm", userHandler.ConfirmChange)

		signed.GET("/authorize", metricsFor(authMetrics, "oauth"), oauthHandler.Authorize)

		authed := signed.Group("", handler.AuthMiddleware(tokens, repos.User))
		{
			authed.GET("/user", userHandler.Get)
			authed.PUT("/user/email", userHandler.ChangeEmail)
			authed.PUT("/user/phone", userHandler.ChangePhone)
			authed.PUT("/user/password", userHandler.ChangePassword)

			authed.POST("/invite", adminHandler.Invite)
			authed.GET("/users", adminHandler.ListUsers)
			authed.POST("/users", adminHandler.CreateUser)
			authed.PUT("/users/:id", adminHandler.UpdateUser)
			authed.DELETE("/users/:id", adminHandler.DeleteUser)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	if err := errors.Join(<-errs, <-errs); err != nil {
		a.infra.Logger().Error("shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("application exited")
	return nil
}
