// Package sqlite implements the durable ledger: user records with their
// cumulative Stars spend and the append-only gift action history.
//
// The store is single-writer. Every operation takes one mutex, so an
// increment-on-conflict can never interleave with a concurrent upsert,
// and reads always observe fully applied writes. modernc.org/sqlite is a
// pure-Go driver, so the binary stays CGo-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"gift-roulette-backend/internal/common/logger"
)

// ActionType is the kind of a gift history entry.
type ActionType string

const (
	ActionWon      ActionType = "won"
	ActionReceived ActionType = "received"
)

// Valid reports whether t is one of the persistable action types.
func (t ActionType) Valid() bool {
	return t == ActionWon || t == ActionReceived
}

// Identity is a sighting of a Telegram user. Nil profile fields mean
// "unknown", not "empty": they never overwrite previously stored values.
type Identity struct {
	ID        int64
	Username  *string
	FirstName *string
	LastName  *string
	PhotoURL  *string
}

// LeaderboardEntry is one row of the spend ranking.
type LeaderboardEntry struct {
	UserID     int64   `json:"userId"`
	Username   *string `json:"username"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	PhotoURL   *string `json:"photoUrl"`
	SpentStars int64   `json:"spentStars"`
}

// ActionEntry is one row of a user's gift history.
type ActionEntry struct {
	Type       ActionType `json:"type"`
	OccurredAt string     `json:"occurredAt"`
	GiftKey    string     `json:"giftId"`
	GiftName   string     `json:"giftName"`
	SpinPrice  *int64     `json:"spinPrice"`
}

type Store struct {
	db *sql.DB

	// Единая точка сериализации всех операций с БД
	mu sync.Mutex
}

// Open opens (creating if needed) the ledger database at path and runs
// the schema migration. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection underneath the mutex: the pool must never hand a
	// second writer to the driver (и ":memory:" живет в одном соединении).
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			photo_url TEXT,
			spent_stars INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_leaderboard
			ON users (spent_stars DESC, user_id ASC)`,
		`CREATE TABLE IF NOT EXISTS action_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			action_type TEXT NOT NULL CHECK(action_type IN ('won', 'received')),
			gift_key TEXT NOT NULL,
			gift_name TEXT NOT NULL,
			spin_price INTEGER,
			occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_action_history_user_time
			ON action_history (user_id, occurred_at DESC, id DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertUser inserts or refreshes a user record. On conflict each profile
// field keeps its previous value unless the incoming sighting knows a
// newer one, so a sparse sighting never erases known data. An identity
// without a valid id is silently ignored.
func (s *Store) UpsertUser(ctx context.Context, identity Identity) error {
	if identity.ID <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (user_id, username, first_name, last_name, photo_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = COALESCE(excluded.username, users.username),
			first_name = COALESCE(excluded.first_name, users.first_name),
			last_name = COALESCE(excluded.last_name, users.last_name),
			photo_url = COALESCE(excluded.photo_url, users.photo_url),
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.db.ExecContext(ctx, query,
		identity.ID, identity.Username, identity.FirstName, identity.LastName, identity.PhotoURL)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// AddSpentStars atomically adds amount to the user's cumulative spend,
// creating the row when the user has never been seen. Non-positive
// amounts are dropped: spent_stars only ever grows.
func (s *Store) AddSpentStars(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		logger.Warn().
			Int64("user_id", userID).
			Int64("amount", amount).
			Msg("add_spent_stars skipped: non-positive amount")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (user_id, spent_stars)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			spent_stars = users.spent_stars + excluded.spent_stars,
			updated_at = CURRENT_TIMESTAMP
		RETURNING spent_stars
	`

	var total int64
	if err := s.db.QueryRowContext(ctx, query, userID, amount).Scan(&total); err != nil {
		logger.Error().
			Err(err).
			Int64("user_id", userID).
			Int64("amount", amount).
			Msg("add_spent_stars failed")
		return fmt.Errorf("failed to add spent stars: %w", err)
	}

	logger.Info().
		Int64("user_id", userID).
		Int64("amount_added", amount).
		Int64("current_spent_stars", total).
		Msg("add_spent_stars succeeded")
	return nil
}

// AddActionHistory appends one history row. Rows are never updated or
// deleted. An unknown action type is dropped with a warning.
func (s *Store) AddActionHistory(ctx context.Context, userID int64, action ActionType, giftKey, giftName string, spinPrice *int64) error {
	if !action.Valid() {
		logger.Warn().
			Str("action_type", string(action)).
			Int64("user_id", userID).
			Msg("add_action_history skipped: invalid action type")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO action_history (user_id, action_type, gift_key, gift_name, spin_price)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, userID, action, giftKey, giftName, spinPrice)
	if err != nil {
		return fmt.Errorf("failed to append action history: %w", err)
	}
	return nil
}

// GetLeaderboard returns users ranked by cumulative spend, ties broken by
// ascending user id so pagination is stable across equal scores. Limit is
// clamped to [1,100], offset to >= 0.
func (s *Store) GetLeaderboard(ctx context.Context, limit, offset int) ([]LeaderboardEntry, error) {
	limit, offset = clampPage(limit, offset)

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT user_id, username, first_name, last_name, photo_url, spent_stars
		FROM users
		ORDER BY spent_stars DESC, user_id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.FirstName, &e.LastName, &e.PhotoURL, &e.SpentStars); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}
	return entries, nil
}

// GetActionHistory returns the user's history, most recent first;
// entries sharing a timestamp keep insertion order via the id tie-break.
func (s *Store) GetActionHistory(ctx context.Context, userID int64, limit, offset int) ([]ActionEntry, error) {
	limit, offset = clampPage(limit, offset)

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT action_type, occurred_at, gift_key, gift_name, spin_price
		FROM action_history
		WHERE user_id = ?
		ORDER BY occurred_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query action history: %w", err)
	}
	defer rows.Close()

	entries := make([]ActionEntry, 0, limit)
	for rows.Next() {
		var e ActionEntry
		if err := rows.Scan(&e.Type, &e.OccurredAt, &e.GiftKey, &e.GiftName, &e.SpinPrice); err != nil {
			return nil, fmt.Errorf("failed to scan action history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read action history rows: %w", err)
	}
	return entries, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
