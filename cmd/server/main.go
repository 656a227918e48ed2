package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mail"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/oauth"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

type eventProducer interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(initCtx, gdb)
	}
	cancel()
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("db handle: %w", err)
	}
	defer sqlDB.Close()

	hasher, err := hash.NewManager(hash.Method(cfg.HashAlgorithm), cfg.BcryptCost)
	if err != nil {
		return err
	}
	tk := tokens.NewService(tokens.Config{
		Secret:    cfg.JWTSecret,
		AccessTTL: cfg.AccessTokenTTL,
		ResetTTL:  cfg.ResetTokenTTL,
	})

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:          cfg.Mail.Host,
			Port:          cfg.Mail.Port,
			Username:      cfg.Mail.User,
			Password:      cfg.Mail.Pass,
			SkipTLSVerify: cfg.Mail.SkipTLSVerify,
		})
	} else {
		logger.Warn("mail_disabled", "reason", "MAIL_HOST is empty, messages are logged")
	}

	var events eventProducer = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		events = p
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn("kafka_close_failed", "error", err)
		}
	}()

	var index service.ProductIndex
	if cfg.ESURL != "" {
		esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		cancel()
		if err != nil {
			// search falls back to the database
			logger.Warn("es_unavailable", "error", err)
		} else {
			index = search.New(client, cfg.ESIndex)
		}
	}

	r := &repo.GormRepo{DB: gdb}
	authSvc := &service.AuthService{
		Repo:    r,
		Hasher:  hasher,
		Tokens:  tk,
		Mailer:  mailer,
		Events:  events,
		BaseURL: cfg.BaseURL,
		From:    mail.Address{Name: cfg.Mail.FromName, Address: cfg.Mail.From},
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))
	if cfg.CSRF {
		csrfCfg := csrf.DefaultConfig()
		csrfCfg.AuthCookie = authmw.AccessCookie
		csrfCfg.Secure = cfg.CookieSecure
		e.Use(csrf.Middleware(csrfCfg))
	}

	google := &httpserver.OAuthHTTP{
		Svc:           authSvc,
		Provider:      oauth.NewGoogle(oauth.Config(cfg.Google)),
		SecureCookies: cfg.CookieSecure,
	}
	users := &httpserver.UserHTTP{
		Svc:           &service.UserService{Repo: r, Hasher: hasher, Events: events},
		SecureCookies: cfg.CookieSecure,
	}
	httpserver.Register(e, &httpserver.Deps{
		Auth:    &httpserver.AuthHTTP{Svc: authSvc, SecureCookies: cfg.CookieSecure},
		OAuth:   google,
		Cart:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Events: events}},
		Users:   users,
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r, Index: index, Events: events}},
		AuthMW:  authmw.New(identity.NewResolver(tk, r), cfg.PublicReads),
		Ready:   sqlDB.PingContext,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	logger.Info("shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	logger.Info("shutdown_complete")
	return nil
}
