// Package commands is the subscriber-facing surface: a thin CRUD shim over
// the subscription store, driven by chat commands. It never touches the
// notified-reward ledger.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"dropbot/internal/storage"
	kit "dropbot/internal/transport"
	logx "dropbot/pkg/logx"
)

const handleTimeout = 10 * time.Second

type Manager struct {
	adapter kit.Adapter
	store   storage.Store
	log     logx.Logger
}

func NewManager(adapter kit.Adapter, store storage.Store, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{adapter: adapter, store: store, log: log}
}

// MenuCommands returns the command list for the platform menu.
func MenuCommands() []kit.BotCommand {
	return []kit.BotCommand{
		{Command: "add", Description: "Track a game for drop alerts"},
		{Command: "remove", Description: "Stop tracking a game"},
		{Command: "list", Description: "Show all tracked games"},
	}
}

// DispatchLoop consumes updates until ctx is done. Command handling runs
// inline; handlers are bounded by handleTimeout so a slow store cannot
// stall the loop forever.
func (m *Manager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Message == nil {
				continue
			}
			m.handle(ctx, up.Message)
		}
	}
}

func (m *Manager) handle(ctx context.Context, msg *kit.Message) {
	cmd, arg := parseCommand(msg.Text)
	if cmd == "" {
		return
	}
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	to := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	subscriberID := strconv.FormatInt(msg.FromID, 10)
	log := m.log.With(
		logx.String("cmd", cmd),
		logx.Int64("from", msg.FromID))

	switch cmd {
	case "add":
		if arg == "" {
			m.reply(hctx, to, "Usage: /add <game name>")
			return
		}
		if err := m.store.AddSubscription(hctx, subscriberID, arg); err != nil {
			log.Error("add failed", logx.Err(err))
			m.reply(hctx, to, "Could not save that right now, try again later.")
			return
		}
		m.reply(hctx, to, fmt.Sprintf("Game %s added", arg))

	case "remove":
		if arg == "" {
			m.reply(hctx, to, "Usage: /remove <game name>")
			return
		}
		if err := m.store.RemoveSubscription(hctx, subscriberID, arg); err != nil {
			log.Error("remove failed", logx.Err(err))
			m.reply(hctx, to, "Could not save that right now, try again later.")
			return
		}
		m.reply(hctx, to, fmt.Sprintf("Game %s removed", arg))

	case "list", "game_list":
		// Two-phase reply: ack first, then edit in the result once the
		// (potentially slow) read finishes.
		ref, err := m.adapter.SendText(hctx, to, "Fetching tracked games...", nil)
		if err != nil {
			log.Warn("list ack failed", logx.Err(err))
			return
		}
		games, err := m.store.DistinctGames(hctx)
		if err != nil {
			log.Error("list failed", logx.Err(err))
			_ = m.adapter.EditText(hctx, ref, "Could not read the game list, try again later.", nil)
			return
		}
		_ = m.adapter.EditText(hctx, ref, formatGameList(games), nil)
	}
}

func (m *Manager) reply(ctx context.Context, to kit.ChatTarget, text string) {
	if _, err := m.adapter.SendText(ctx, to, text, nil); err != nil {
		m.log.Warn("reply failed", logx.Err(err))
	}
}

// parseCommand splits "/add@botname Apex Legends" into ("add", "Apex Legends").
// Non-command text yields ("", "").
func parseCommand(text string) (cmd, arg string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(head, '@'); i != -1 {
		head = head[:i]
	}
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func formatGameList(games []string) string {
	if len(games) == 0 {
		return "No games tracked yet. Add one with /add <game name>."
	}
	sorted := append([]string(nil), games...)
	sort.Strings(sorted)
	var b strings.Builder
	b.WriteString("Tracked games:\n")
	for _, g := range sorted {
		b.WriteString("- ")
		b.WriteString(g)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
