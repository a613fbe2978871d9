package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecodonate/ecodonate/internal/config"
	"github.com/ecodonate/ecodonate/internal/database"
	"github.com/ecodonate/ecodonate/internal/donation"
	donationStore "github.com/ecodonate/ecodonate/internal/donation/store"
	ecoHttp "github.com/ecodonate/ecodonate/internal/http"
	callbackHandler "github.com/ecodonate/ecodonate/internal/http/callback"
	donationHandler "github.com/ecodonate/ecodonate/internal/http/donation"
	pagesHandler "github.com/ecodonate/ecodonate/internal/http/pages"
	projectHandler "github.com/ecodonate/ecodonate/internal/http/project"
	"github.com/ecodonate/ecodonate/internal/logging"
	"github.com/ecodonate/ecodonate/internal/mpesa"
	"github.com/ecodonate/ecodonate/internal/project"
	projectStore "github.com/ecodonate/ecodonate/internal/project/store"
	"github.com/ecodonate/ecodonate/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.App.Env)

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	gateway := mpesa.NewClient(mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		Shortcode:      cfg.Mpesa.Shortcode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
	})

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL)

	var (
		projectService  = project.NewService(projectStore.New(db))
		donationService = donation.NewService(donationStore.New(db), projectService, gateway, logger)
	)

	var (
		projectH  = projectHandler.NewHandler(projectService, logger)
		donationH = donationHandler.NewHandler(donationService, sessions, logger)
		callbackH = callbackHandler.NewHandler(donationService, logger)
		pagesH    = pagesHandler.NewHandler()
	)

	router := ecoHttp.New(projectH, donationH, callbackH, pagesH, cfg.Session.Secret)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("starting server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down server")
	}

	logger.Info().Msg("server stopped")
}
