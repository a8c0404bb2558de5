package notify

import (
	"strings"
	"testing"
	"time"
)

func TestParseEndAtTruncatesSubSecond(t *testing.T) {
	t.Parallel()
	withFrac, ok := ParseEndAt("2025-11-30T23:29:59.998Z")
	if !ok {
		t.Fatal("expected fractional timestamp to parse")
	}
	without, ok := ParseEndAt("2025-11-30T23:29:59Z")
	if !ok {
		t.Fatal("expected plain timestamp to parse")
	}
	if withFrac != without {
		t.Fatalf("sub-second must truncate: %d != %d", withFrac, without)
	}
}

func TestParseEndAtVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "plain utc", in: "2025-01-01T00:00:00Z", ok: true},
		{name: "fraction", in: "2025-01-01T00:00:00.500Z", ok: true},
		{name: "offset zone", in: "2025-01-01T01:00:00+01:00", ok: true},
		{name: "empty", in: "", ok: false},
		{name: "garbage", in: "not-a-timestamp", ok: false},
		{name: "date only", in: "2025-01-01", ok: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, ok := ParseEndAt(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseEndAt(%q) ok=%v, want %v", tt.in, ok, tt.ok)
			}
		})
	}
}

func TestParseEndAtEpochValue(t *testing.T) {
	t.Parallel()
	got, ok := ParseEndAt("2025-01-01T00:00:00Z")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	if got != want {
		t.Fatalf("epoch = %d, want %d", got, want)
	}
}

func TestRenderOmitsExpiryOnBadTimestamp(t *testing.T) {
	t.Parallel()
	p := Render("Rust", "Hat", "http://img", "garbage")
	if p.ExpiresUnix != 0 {
		t.Fatalf("expected no expiry, got %d", p.ExpiresUnix)
	}
	if p.Title != "Rust" || p.Body != "Hat" || p.ImageRef != "http://img" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestCaptionWithAndWithoutExpiry(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	p := Render("Rust", "Hat", "u", "2025-01-01T03:30:00Z")
	text := caption(p, now)
	if !strings.Contains(text, "Rust") || !strings.Contains(text, "Hat") {
		t.Fatalf("caption missing fields: %q", text)
	}
	if !strings.Contains(text, "Ends in 3h 30m") {
		t.Fatalf("expected relative expiry, got %q", text)
	}

	p2 := Render("Rust", "Hat", "u", "")
	if strings.Contains(caption(p2, now), "Ends") {
		t.Fatalf("caption must omit expiry when unknown: %q", caption(p2, now))
	}
}

func TestRelativeTo(t *testing.T) {
	t.Parallel()
	now := time.Unix(0, 0)
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "days", d: 72 * time.Hour, want: "in 3 days"},
		{name: "hours", d: 90 * time.Minute, want: "in 1h 30m"},
		{name: "minutes", d: 10 * time.Minute, want: "in 10m"},
		{name: "past", d: -time.Minute, want: "soon"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := relativeTo(now, now.Add(tt.d)); got != tt.want {
				t.Fatalf("relativeTo(+%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
