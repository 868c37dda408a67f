package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	accounts "github.com/counselgpt/go-accounts"
	"github.com/counselgpt/go-accounts/social"
)

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("accounts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
	logger := lgr.GetLogger("boot")

	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := openDatabase(cfg.DBDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := createSchema(ctx, db); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	repo := accounts.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := accounts.NewTokenService([]byte(cfg.Secret), cfg.TokenTTL, lgr.GetLogger("tokens"))

	var mailer accounts.Mailer
	if cfg.SMTPEnabled() {
		mailer = accounts.NewSMTPMailer(accounts.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}, lgr.GetLogger("mailer"))
	} else {
		logger.Warn("smtp not configured, verification codes will be logged")
		mailer = accounts.NewLogMailer(lgr.GetLogger("mailer"))
	}

	flow := accounts.NewRegistrationFlow(repo, tokens, mailer,
		accounts.WithRegistrationLogger(lgr.GetLogger("signup")))
	auth := accounts.NewAuthenticator(repo, tokens).
		WithLogger(lgr.GetLogger("login"))

	app := fiber.New(fiber.Config{
		AppName:      "counselgpt-accounts",
		ErrorHandler: accounts.ErrorHandler(lgr.GetLogger("http")),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.FrontendOrigins(), ","),
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "message": "counselgpt accounts service"})
	})

	protected := accounts.Protected(tokens, repo)

	controller := accounts.NewAuthController(flow, auth, repo,
		accounts.WithControllerLogger(lgr.GetLogger("http")))
	controller.RegisterAuthRoutes(app, protected)

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		provider := social.NewGoogleProvider(social.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallbackURL(),
		})
		googleAuth := social.NewAuthenticator(provider, repo, tokens).
			WithLogger(lgr.GetLogger("google"))
		social.NewController(googleAuth, cfg.PrimaryFrontend()).
			WithLogger(lgr.GetLogger("google")).
			RegisterRoutes(app)
	} else {
		logger.Warn("google oauth not configured, federated login disabled")
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := app.Listen(cfg.Addr); err != nil {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*accounts.User)(nil),
		(*accounts.PendingRegistration)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
