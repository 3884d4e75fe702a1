package cmd

import (
	"context"
	"fmt"
	"time"

	"diceduel/config"
	"diceduel/cryptopay"
	"diceduel/database"
	"diceduel/events"
	"diceduel/repository"
	"diceduel/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the duel engine
func Run(ctx context.Context) error {
	log.Info("Starting dice duel engine...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	gateway := cryptopay.NewClient(cfg.CryptoPayBaseURL, cfg.CryptoPayToken)

	escrowService := service.NewEscrowService(uowFactory, gateway, cfg)
	gameService := service.NewGameService(uowFactory, escrowService, cfg)

	// The chat transport plugs in here: it decodes raw updates into intents
	// for a service.Dispatcher and renders the events the bus emits. Until
	// one is attached, lifecycle events go to the log.
	subscribeEventLogging(eventBus)

	supervisor := service.NewTimeoutSupervisor(uowFactory, gameService, cfg)
	go supervisor.Start(ctx)

	log.WithField("environment", cfg.Environment).Info("Engine is running")
	<-ctx.Done()

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
