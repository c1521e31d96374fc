package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"volunteerhub.org/internal/activity"
	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/calendar"
	"volunteerhub.org/internal/config"
	"volunteerhub.org/internal/documents"
	"volunteerhub.org/internal/httpapi"
	"volunteerhub.org/internal/mail"
	"volunteerhub.org/internal/obs"
	"volunteerhub.org/internal/store/pg"
	"volunteerhub.org/internal/tasks"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		obs.Logger().WithError(err).Fatal("invalid config")
	}

	obs.ConfigureLogger(cfg.Logging.Level, cfg.Logging.Format)
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	ctx := context.Background()
	db, err := pg.Open(ctx, cfg.Database.DSN, pg.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		ConnLifetime: cfg.Database.ConnLifetime,
	})
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	authStore := auth.NewPGStore(db)
	authSvc, err := auth.NewService(authStore, cfg.Auth.Secret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithAccessTTL(cfg.Auth.AccessTTL),
		auth.WithRefreshTTL(cfg.Auth.RefreshTTL),
		auth.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	if err != nil {
		log.WithError(err).Fatal("init auth service")
	}

	feed := activity.New()
	taskSvc := tasks.NewService(tasks.NewPGStore(db), feed)
	calendarSvc := calendar.NewService(calendar.NewPGStore(db), feed)
	documentSvc := documents.NewService(documents.NewPGStore(db), feed)

	var mailer mail.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	} else {
		mailer = &mail.LogMailer{Logger: log}
	}

	api := httpapi.New(httpapi.Deps{
		Auth:           authSvc,
		Store:          authStore,
		Tasks:          taskSvc,
		Calendar:       calendarSvc,
		Documents:      documentSvc,
		Feed:           feed,
		Mailer:         mailer,
		Ready:          httpapi.ReadyProbe{DB: db},
		Version:        version,
		LoginBurst:     cfg.RateLimit.LoginBurst,
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).WithField("version", version).Info("starting volunteerhub-api")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	log.Info("stopped")
}
