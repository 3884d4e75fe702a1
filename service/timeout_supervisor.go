package service

import (
	"context"
	"errors"
	"time"

	"diceduel/config"
	"diceduel/models"

	log "github.com/sirupsen/logrus"
)

// TimeoutSupervisor periodically scans active duels and forces a timeout
// resolution when a turn deadline has elapsed. It goes through the same
// guarded finish transition as live player actions, so racing a roll or a
// second tick never resolves a duel twice.
type TimeoutSupervisor struct {
	uowFactory UnitOfWorkFactory
	games      GameService
	interval   time.Duration
}

// NewTimeoutSupervisor creates a new timeout supervisor
func NewTimeoutSupervisor(uowFactory UnitOfWorkFactory, games GameService, cfg *config.Config) *TimeoutSupervisor {
	return &TimeoutSupervisor{
		uowFactory: uowFactory,
		games:      games,
		interval:   cfg.TimeoutCheckInterval,
	}
}

// Start runs the polling loop until the context is cancelled
func (s *TimeoutSupervisor) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.WithField("interval", s.interval).Info("Timeout supervisor started")

	for {
		select {
		case <-ctx.Done():
			log.Info("Timeout supervisor stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick resolves every expired duel. Errors are logged and skipped; the next
// tick retries anything left unresolved.
func (s *TimeoutSupervisor) tick(ctx context.Context) {
	expired, err := s.loadExpired(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load expired duels")
		return
	}

	for _, game := range expired {
		err := s.games.HandleTimeout(ctx, game.ID)
		if errors.Is(err, ErrAlreadyProcessed) {
			// A player action or another trigger got there first
			continue
		}
		if err != nil {
			log.WithFields(log.Fields{
				"gameID": game.ID,
				"error":  err,
			}).Error("Failed to resolve duel timeout")
		}
	}
}

func (s *TimeoutSupervisor) loadExpired(ctx context.Context) ([]*models.Game, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	return uow.GameRepository().GetExpired(ctx, time.Now())
}
