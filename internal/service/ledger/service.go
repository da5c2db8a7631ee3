// Package ledger orchestrates the durable store, the leaderboard cache
// and the background pool behind the user-facing read/write operations.
package ledger

import (
	"context"

	"gift-roulette-backend/internal/auth"
	"gift-roulette-backend/internal/common/logger"
	"gift-roulette-backend/internal/storage/sqlite"
	"gift-roulette-backend/internal/worker"
)

// Store is the durable ledger surface this service drives.
type Store interface {
	UpsertUser(ctx context.Context, identity sqlite.Identity) error
	AddSpentStars(ctx context.Context, userID, amount int64) error
	AddActionHistory(ctx context.Context, userID int64, action sqlite.ActionType, giftKey, giftName string, spinPrice *int64) error
	GetLeaderboard(ctx context.Context, limit, offset int) ([]sqlite.LeaderboardEntry, error)
	GetActionHistory(ctx context.Context, userID int64, limit, offset int) ([]sqlite.ActionEntry, error)
}

// Cache is an optional page cache for the leaderboard read path.
type Cache interface {
	Get(ctx context.Context, limit, offset int) ([]sqlite.LeaderboardEntry, error)
	Set(ctx context.Context, limit, offset int, entries []sqlite.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	store Store
	cache Cache
	pool  *worker.Pool
}

// New builds the service. cache may be nil when Redis is disabled.
func New(store Store, cache Cache, pool *worker.Pool) *Service {
	return &Service{store: store, cache: cache, pool: pool}
}

func toIdentity(user *auth.User) sqlite.Identity {
	identity := sqlite.Identity{ID: user.ID}
	if user.Username != "" {
		identity.Username = &user.Username
	}
	if user.FirstName != "" {
		identity.FirstName = &user.FirstName
	}
	if user.LastName != "" {
		identity.LastName = &user.LastName
	}
	if user.PhotoURL != "" {
		identity.PhotoURL = &user.PhotoURL
	}
	return identity
}

// UpsertUser refreshes the user's ledger record synchronously.
func (s *Service) UpsertUser(ctx context.Context, user *auth.User) error {
	return s.store.UpsertUser(ctx, toIdentity(user))
}

// RecordSighting refreshes the user's profile without blocking the
// caller's response. Failures are observed by the pool, not the caller.
func (s *Service) RecordSighting(user *auth.User) {
	identity := toIdentity(user)
	s.pool.Go("upsert_user", func() error {
		return s.store.UpsertUser(context.Background(), identity)
	})
}

// CreditSpend applies a validated payment to the user's cumulative spend
// and drops cached leaderboard pages. Storage failures propagate to the
// caller; cache failures are logged only.
func (s *Service) CreditSpend(ctx context.Context, userID, amount int64) error {
	if err := s.store.AddSpentStars(ctx, userID, amount); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("leaderboard cache invalidation failed")
		}
	}
	return nil
}

// RecordGiftDelivery appends the WON/RECEIVED pair for one delivered
// gift. Callers must only invoke it after the transfer succeeded.
func (s *Service) RecordGiftDelivery(ctx context.Context, userID int64, giftKey, giftName string, spinPrice *int64) error {
	if err := s.store.AddActionHistory(ctx, userID, sqlite.ActionWon, giftKey, giftName, spinPrice); err != nil {
		return err
	}
	return s.store.AddActionHistory(ctx, userID, sqlite.ActionReceived, giftKey, giftName, spinPrice)
}

// Leaderboard serves the ranking cache-aside. Cache errors degrade to
// the store, never to the caller.
func (s *Service) Leaderboard(ctx context.Context, limit, offset int) ([]sqlite.LeaderboardEntry, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, limit, offset)
		if err != nil {
			logger.Warn().Err(err).Msg("leaderboard cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	entries, err := s.store.GetLeaderboard(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, limit, offset, entries); err != nil {
			logger.Warn().Err(err).Msg("leaderboard cache write failed")
		}
	}
	return entries, nil
}

// History returns the user's gift history page.
func (s *Service) History(ctx context.Context, userID int64, limit, offset int) ([]sqlite.ActionEntry, error) {
	return s.store.GetActionHistory(ctx, userID, limit, offset)
}
