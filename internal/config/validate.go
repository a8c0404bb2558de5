package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks fields that would make the bot unusable or a hot-reload
// unsafe to apply. It is used both at startup and as the Watch() validator.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if cfg.Telegram.ChatID == 0 {
		return errors.New("telegram.chat_id is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Feed.URL) == "" {
		return errors.New("feed.url is required")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.Feed.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("feed.url: invalid URL %q", cfg.Feed.URL)
	}
	if _, err := ParseDurationField("feed.timeout", cfg.Feed.Timeout); err != nil {
		return err
	}

	if _, err := ParseDurationField("poller.interval", cfg.Poller.Interval); err != nil {
		return err
	}
	if cfg.Poller.RatePerSec < 0 {
		return errors.New("poller.rate_per_sec must be >= 0")
	}

	if strings.TrimSpace(cfg.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
		return err
	}
	return nil
}
