package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eduportal/internal/auth"
	"eduportal/internal/config"
	"eduportal/internal/handlers"
	"eduportal/internal/netclient"
	"eduportal/internal/push"
	"eduportal/internal/reminder"
	"eduportal/internal/repository"
	"eduportal/internal/securestore"
	"eduportal/internal/security"
	"eduportal/internal/service"
)

func init() {
	if err := godotenv.Load(); err != nil {
		slog.Info(err.Error())
	}
	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel(os.Getenv("LOG_LEVEL")),
			TimeFormat: time.RFC1123Z,
		}),
	))
}

func logLevel(value string) slog.Level {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, db, err := securestore.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("migrations completed successfully")

	// Repositories
	familyRepo := repository.NewFamilyRepository(store, nil)
	calendarRepo := repository.NewCalendarRepository(store, nil)
	settingsRepo := repository.NewSettingsRepository(store)
	credRepo := repository.NewCredentialRepository(store)

	familyRepo.Load(ctx)
	calendarRepo.Load(ctx)
	slog.Info("collections loaded", "family_members", familyRepo.Count(), "calendar_events", calendarRepo.Count())

	// Outbound HTTP
	httpClient := netclient.NewClient(netclient.Options{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.HTTPMaxRetries,
		RetryDelay: cfg.HTTPRetryDelay,
	})

	session := auth.NewSession(auth.Config{
		BaseURL:     cfg.OIDCBaseURL,
		Realm:       cfg.OIDCRealm,
		ClientID:    cfg.OIDCClientID,
		RedirectURL: cfg.OIDCRedirectURL,
	}, credRepo, httpClient)
	if session.Restore(ctx) {
		slog.Info("restored signed-in session")
	}

	pushClient := push.NewClient(cfg.PushAPIURL, cfg.PushProjectID, cfg.PushDeviceID, httpClient)

	// Services
	familyService := service.NewFamilyService(familyRepo, calendarRepo)
	calendarService := service.NewCalendarService(calendarRepo, familyService, loc)
	onboardingService := service.NewOnboardingService(settingsRepo)
	notificationService := service.NewNotificationService(settingsRepo, pushClient)
	notificationService.Load(ctx)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		slog.Warn("email digest disabled", "error", err)
		emailService = &service.EmailService{}
	}

	scheduler := reminder.New(reminder.Options{
		Events:   calendarService,
		Members:  familyService,
		Tokens:   settingsRepo,
		Notifier: pushClient,
		Mailer:   emailService,
		DigestTo: cfg.DigestEmail,
		Lead:     cfg.ReminderLead,
	})
	if err := scheduler.Start(cfg.ReminderCron, cfg.DigestCron); err != nil {
		return err
	}

	authLimiter := security.NewRateLimiter(10, time.Minute)
	go authLimiter.Run(ctx)

	middleware := handlers.NewMiddleware(session)
	router := handlers.NewRouter(handlers.Routes{
		Auth:        handlers.NewAuthHandler(session),
		Family:      handlers.NewFamilyHandler(familyService),
		Calendar:    handlers.NewCalendarHandler(calendarService),
		Settings:    handlers.NewSettingsHandler(onboardingService, notificationService),
		Middleware:  middleware,
		AuthLimiter: authLimiter,
		Metrics:     promhttp.Handler(),
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", "http://localhost"+addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}
