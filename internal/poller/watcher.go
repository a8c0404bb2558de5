package poller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"dropbot/internal/drops"
	"dropbot/internal/metrics"
	"dropbot/internal/notify"
	"dropbot/internal/storage"
	logx "dropbot/pkg/logx"
)

const defaultInterval = time.Hour

// Feed supplies the current drop snapshot.
type Feed interface {
	Fetch(ctx context.Context) ([]drops.Drop, error)
}

// Sink delivers a rendered notification.
type Sink interface {
	Send(ctx context.Context, p notify.Payload) error
}

// Watcher runs the drop check on a fixed period. At most one cycle runs at
// a time: a tick that fires while a cycle is in flight is skipped outright,
// never queued.
type Watcher struct {
	store storage.Store
	feed  Feed
	sink  Sink
	log   logx.Logger

	// cycleMu is the single-flight guard between ticks.
	cycleMu sync.Mutex

	mu       sync.Mutex
	interval time.Duration
	c        *cron.Cron
	entry    cron.EntryID
	runCtx   context.Context
}

func New(store storage.Store, feed Feed, sink Sink, interval time.Duration, log logx.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{
		store:    store,
		feed:     feed,
		sink:     sink,
		interval: interval,
		log:      log,
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.c != nil {
		return nil
	}
	w.runCtx = ctx
	w.c = cron.New()
	id, err := w.c.AddFunc("@every "+w.interval.String(), w.tick)
	if err != nil {
		w.c = nil
		return err
	}
	w.entry = id
	w.c.Start()
	w.log.Info("poller started", logx.Duration("interval", w.interval))
	return nil
}

func (w *Watcher) Stop(ctx context.Context) {
	w.mu.Lock()
	c := w.c
	w.c = nil
	w.mu.Unlock()
	if c == nil {
		return
	}
	stop := c.Stop()
	select {
	case <-stop.Done():
	case <-ctx.Done():
		w.log.Warn("poller stop timed out waiting for cycle")
	}
}

// Apply changes the poll interval at runtime. A zero or unchanged interval
// is ignored.
func (w *Watcher) Apply(interval time.Duration) {
	if interval <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if interval == w.interval {
		return
	}
	w.interval = interval
	if w.c == nil {
		return
	}
	w.c.Remove(w.entry)
	id, err := w.c.AddFunc("@every "+interval.String(), w.tick)
	if err != nil {
		w.log.Error("failed to reschedule poller", logx.Err(err))
		return
	}
	w.entry = id
	w.log.Info("poll interval updated", logx.Duration("interval", interval))
}

// tick is the cron entrypoint. It skips when the previous cycle is still
// running; missed ticks are not made up.
func (w *Watcher) tick() {
	if !w.cycleMu.TryLock() {
		metrics.CyclesSkipped.Inc()
		w.log.Warn("previous cycle still running; skipping tick")
		return
	}
	defer w.cycleMu.Unlock()

	w.mu.Lock()
	ctx := w.runCtx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	w.RunCycle(ctx)
}

// RunCycle executes one fetch→match→record→dispatch pass. Errors are
// contained: a feed or store failure ends this cycle only, and a failed
// send never blocks the remaining matches.
func (w *Watcher) RunCycle(ctx context.Context) {
	start := time.Now()
	log := w.log.With(logx.String("cycle", uuid.NewString()[:8]))

	games, err := w.store.DistinctGames(ctx)
	if err != nil {
		log.Error("failed to read tracked games", logx.Err(err))
		metrics.CyclesTotal.WithLabelValues("store_error").Inc()
		return
	}
	metrics.TrackedGames.Set(float64(len(games)))
	if len(games) == 0 {
		log.Debug("no tracked games; nothing to do")
		metrics.CyclesTotal.WithLabelValues("ok").Inc()
		return
	}

	notified, err := w.store.NotifiedRewardIDs(ctx)
	if err != nil {
		log.Error("failed to read notified rewards", logx.Err(err))
		metrics.CyclesTotal.WithLabelValues("store_error").Inc()
		return
	}

	snapshot, err := w.feed.Fetch(ctx)
	if err != nil {
		// Not fatal: the next scheduled tick is the retry.
		log.Warn("feed unavailable; skipping cycle", logx.Err(err))
		metrics.CyclesTotal.WithLabelValues("feed_error").Inc()
		return
	}

	matches := MatchDrops(games, notified, snapshot)
	log.Info("cycle matched",
		logx.Int("tracked", len(games)),
		logx.Int("drops", len(snapshot)),
		logx.Int("new", len(matches)))

	for _, m := range matches {
		// Record before dispatch: a crash or send failure after this point
		// costs one missed notification, never a duplicate.
		if err := w.store.RecordNotified(ctx, m.Game, m.RewardID); err != nil {
			log.Error("failed to record reward; aborting cycle",
				logx.String("reward_id", m.RewardID), logx.Err(err))
			metrics.CyclesTotal.WithLabelValues("store_error").Inc()
			return
		}
		p := notify.Render(m.DropGame, m.Reward, m.ImageURL, m.EndAt)
		if err := w.sink.Send(ctx, p); err != nil {
			log.Error("failed to send notification",
				logx.String("game", m.DropGame),
				logx.String("reward_id", m.RewardID),
				logx.Err(err))
			continue
		}
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	log.Debug("cycle complete", logx.Duration("took", time.Since(start)))
}
