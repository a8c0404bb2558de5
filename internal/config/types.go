package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Feed     FeedConfig     `json:"feed"`
	Poller   PollerConfig   `json:"poller"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Debug    DebugConfig    `json:"debug,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// ChatID is the single chat every drop notification goes to.
	// Subscribers share this destination; there is no per-user routing.
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`

	// PollTimeout is a Go duration string (e.g. "10s", "2m") for the
	// Telegram long-poll loop.
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type FeedConfig struct {
	URL string `json:"url"`
	// Timeout bounds a single feed fetch. Go duration string.
	Timeout string `json:"timeout,omitempty"`
}

// PollerConfig controls the drop check cycle.
//
// Interval is a Go duration string (e.g. "1h", "30m"). Default "1h".
type PollerConfig struct {
	Enabled  bool   `json:"enabled"`
	Interval string `json:"interval,omitempty"`

	// RatePerSec caps outgoing notification sends. Default 1.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// StorageConfig controls the sqlite persistence layer.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// DebugConfig controls the optional localhost debug HTTP server
// (prometheus metrics + pprof).
//
// Security note: prefer binding to localhost (e.g. "127.0.0.1:6060").
type DebugConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:6060"
}
