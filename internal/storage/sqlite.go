package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "dropbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

// Open initializes the sqlite store at cfg.Path, creating the schema if
// needed. All writes are committed synchronously (WAL + NORMAL), so an
// operation that returns nil is durable.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers. A single
	// connection also gives read-your-writes within the process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AddSubscription(ctx context.Context, subscriberID, game string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions(subscriber_id, game_name) VALUES(?, ?)`,
		subscriberID, game,
	)
	if err != nil {
		return fmt.Errorf("%w: add subscription: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *sqliteStore) RemoveSubscription(ctx context.Context, subscriberID, game string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE subscriber_id = ? AND game_name = ?`,
		subscriberID, game,
	)
	if err != nil {
		return fmt.Errorf("%w: remove subscription: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *sqliteStore) DistinctGames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT game_name FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("%w: distinct games: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var games []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("%w: distinct games: %v", ErrUnavailable, err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: distinct games: %v", ErrUnavailable, err)
	}
	return games, nil
}

func (s *sqliteStore) RecordNotified(ctx context.Context, game, rewardID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notified_rewards(game_name, reward_id) VALUES(?, ?)`,
		strings.ToLower(game), rewardID,
	)
	if err != nil {
		return fmt.Errorf("%w: record notified: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *sqliteStore) NotifiedRewardIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT reward_id FROM notified_rewards`)
	if err != nil {
		return nil, fmt.Errorf("%w: notified reward ids: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: notified reward ids: %v", ErrUnavailable, err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: notified reward ids: %v", ErrUnavailable, err)
	}
	return ids, nil
}

func (s *sqliteStore) IsNotified(ctx context.Context, rewardID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM notified_rewards WHERE reward_id = ? LIMIT 1`, rewardID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: is notified: %v", ErrUnavailable, err)
	}
	return true, nil
}
