// Package poller drives the periodic drop check: fetch the feed snapshot,
// match it against tracked games, record new rewards in the ledger, and
// hand them to the dispatcher.
package poller

import (
	"strings"

	"dropbot/internal/drops"
)

// Match is one new reward to announce. Game is the tracked name as stored
// (the ledger lowercases it on write); DropGame is the feed's display name
// used for the notification title.
type Match struct {
	Game     string
	DropGame string
	RewardID string
	Reward   string
	ImageURL string
	EndAt    string
}

// MatchDrops compares the tracked-game set against a feed snapshot and
// returns the rewards not yet notified, in a deterministic order (tracked
// game order, then feed order).
//
// Rules: game names compare case-insensitively; only the first reward of a
// drop is considered; drops with no rewards are skipped; a reward id seen
// earlier in the same call is not emitted twice (two tracked spellings of
// one game must not double-announce).
func MatchDrops(tracked []string, notified map[string]struct{}, snapshot []drops.Drop) []Match {
	var out []Match
	seen := make(map[string]struct{})

	for _, game := range tracked {
		for _, d := range snapshot {
			if !strings.EqualFold(d.GameDisplayName, game) {
				continue
			}
			if len(d.Rewards) == 0 {
				continue
			}
			r := d.Rewards[0]
			if r.ID == "" {
				continue
			}
			if _, ok := notified[r.ID]; ok {
				continue
			}
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, Match{
				Game:     game,
				DropGame: d.GameDisplayName,
				RewardID: r.ID,
				Reward:   r.Name,
				ImageURL: r.ImageURL,
				EndAt:    d.EndAt,
			})
		}
	}
	return out
}
