package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `telegram:
  token: "123:abc"
  chat_id: -100123
  poll_timeout: "10s"
feed:
  url: "https://example.com/drops"
  timeout: "15s"
poller:
  enabled: true
  interval: "30m"
storage:
  path: "./test.db"
logging:
  level: "debug"
  console: true
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.ChatID != -100123 {
		t.Fatalf("unexpected telegram config: %+v", cfg.Telegram)
	}
	if cfg.Feed.URL != "https://example.com/drops" {
		t.Fatalf("unexpected feed config: %+v", cfg.Feed)
	}
	if !cfg.Poller.Enabled || cfg.Poller.Interval != "30m" {
		t.Fatalf("unexpected poller config: %+v", cfg.Poller)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML+"bogus_key: true\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t", ChatID: 1},
			Feed:     FeedConfig{URL: "https://example.com/drops"},
			Storage:  StorageConfig{Path: "./x.db"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = "" }, wantErr: true},
		{name: "missing chat id", mutate: func(c *Config) { c.Telegram.ChatID = 0 }, wantErr: true},
		{name: "missing feed url", mutate: func(c *Config) { c.Feed.URL = "" }, wantErr: true},
		{name: "bad feed url scheme", mutate: func(c *Config) { c.Feed.URL = "ftp://x" }, wantErr: true},
		{name: "bad interval", mutate: func(c *Config) { c.Poller.Interval = "soonish" }, wantErr: true},
		{name: "negative rate", mutate: func(c *Config) { c.Poller.RatePerSec = -1 }, wantErr: true},
		{name: "missing storage path", mutate: func(c *Config) { c.Storage.Path = "" }, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty means zero", raw: "", want: 0},
		{name: "minutes", raw: "30m", want: 30 * time.Minute},
		{name: "hours", raw: "1h", want: time.Hour},
		{name: "negative", raw: "-5s", wantErr: true},
		{name: "garbage", raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("test.field", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v, wantErr=%v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("test.field", "", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != time.Hour {
		t.Fatalf("empty should fall back to default, got %v", got)
	}
}
