package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"dropbot/internal/metrics"
	kit "dropbot/internal/transport"
	logx "dropbot/pkg/logx"
)

// Service delivers rendered payloads to one preconfigured chat target.
// Sends are rate-limited so a burst of matches cannot trip Telegram's
// flood control.
type Service struct {
	adapter kit.Adapter
	target  kit.ChatTarget
	limiter *rate.Limiter
	log     logx.Logger
	now     func() time.Time
}

func New(adapter kit.Adapter, target kit.ChatTarget, ratePerSec int, log logx.Logger) *Service {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		adapter: adapter,
		target:  target,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		log:     log,
		now:     time.Now,
	}
}

// Send delivers one payload. Payloads with an image go out as a photo with
// caption; the rest as plain text. An error here is the caller's to log;
// the ledger entry is already committed, so the reward is never retried.
func (s *Service) Send(ctx context.Context, p Payload) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	text := caption(p, s.now())
	var err error
	if p.ImageRef != "" {
		_, err = s.adapter.SendPhoto(ctx, s.target, p.ImageRef, text, nil)
	} else {
		_, err = s.adapter.SendText(ctx, s.target, text, &kit.SendOptions{DisablePreview: true})
	}
	if err != nil {
		metrics.NotificationsFailed.Inc()
		return err
	}
	metrics.NotificationsSent.Inc()
	s.log.Debug("notification sent",
		logx.String("title", p.Title),
		logx.Int64("chat_id", s.target.ChatID))
	return nil
}
