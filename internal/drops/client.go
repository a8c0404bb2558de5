// Package drops fetches the current snapshot of active Twitch drop
// campaigns from the public drops feed. It is a stateless I/O boundary:
// one GET per poll cycle, no caching, no retry (the next cycle retries).
package drops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logx "dropbot/pkg/logx"
)

// ErrFeedUnavailable covers every failure that makes the whole snapshot
// unusable: network errors, non-2xx responses, a non-array top level.
// The caller skips the cycle; individual malformed elements are NOT part
// of this error and are dropped silently (with a warning log).
var ErrFeedUnavailable = errors.New("drops feed unavailable")

const defaultTimeout = 15 * time.Second

type Client struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func NewClient(url string, timeout time.Duration, log logx.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Fetch returns the current drop snapshot. A single malformed element is
// skipped; a malformed top-level payload fails the whole fetch.
func (c *Client) Fetch(ctx context.Context) ([]Drop, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFeedUnavailable, err)
	}

	out := make([]Drop, 0, len(raw))
	for i, el := range raw {
		var d Drop
		if err := json.Unmarshal(el, &d); err != nil {
			c.log.Warn("skipping malformed drop element",
				logx.Int("index", i), logx.Err(err))
			continue
		}
		if strings.TrimSpace(d.GameDisplayName) == "" {
			c.log.Warn("skipping drop element without game name", logx.Int("index", i))
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
