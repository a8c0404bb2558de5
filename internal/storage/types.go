package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps persistence-layer failures so callers can tell a
// storage outage apart from ordinary domain conditions. A cycle that hits
// it aborts; the next tick starts clean.
var ErrUnavailable = errors.New("storage unavailable")

// Config configures the sqlite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the persistence API shared by the command surface and the
// poll cycle. Subscriptions and the notified-reward ledger live in
// disjoint tables; writes to one never need to be atomic with the other.
type Store interface {
	// AddSubscription inserts a row unconditionally. Repeated adds of the
	// same pair accumulate duplicate rows; distinct reads collapse them.
	AddSubscription(ctx context.Context, subscriberID, game string) error

	// RemoveSubscription deletes every row matching both fields exactly
	// (case-sensitive). Removing an absent pair is a no-op.
	RemoveSubscription(ctx context.Context, subscriberID, game string) error

	// DistinctGames returns the unique game names across all subscriptions,
	// as stored (case preserved), in no particular order.
	DistinctGames(ctx context.Context) ([]string, error)

	// RecordNotified durably persists (game, rewardID) in the ledger.
	// The game name is normalized to lowercase on write.
	RecordNotified(ctx context.Context, game, rewardID string) error

	// NotifiedRewardIDs returns the set of reward ids already recorded.
	NotifiedRewardIDs(ctx context.Context) (map[string]struct{}, error)

	// IsNotified reports whether a single reward id is in the ledger.
	IsNotified(ctx context.Context, rewardID string) (bool, error)

	Close() error
}
