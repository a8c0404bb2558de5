// Package notify renders matched drops into destination-agnostic payloads
// and delivers them to the configured chat target.
package notify

import (
	"fmt"
	"strings"
	"time"
)

// Payload is a rendered notification. ExpiresUnix is the campaign end as
// epoch seconds (UTC); 0 means the end time was missing or unparseable and
// no expiry is shown.
type Payload struct {
	Title       string
	Body        string
	ImageRef    string
	ExpiresUnix int64
}

// Render builds a payload for one matched drop. A bad endAt never fails
// the payload; the expiry is just omitted.
func Render(game, reward, imageURL, endAt string) Payload {
	p := Payload{
		Title:    game,
		Body:     reward,
		ImageRef: imageURL,
	}
	if ts, ok := ParseEndAt(endAt); ok {
		p.ExpiresUnix = ts
	}
	return p
}

// ParseEndAt converts an ISO-8601 end timestamp to epoch seconds.
// Sub-second precision is stripped before parsing, so "...59.998Z" and
// "...59Z" map to the same second (truncated, not rounded).
func ParseEndAt(endAt string) (int64, bool) {
	s := strings.TrimSpace(endAt)
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, '.'); i != -1 {
		frac := s[i:]
		// Keep whatever zone suffix follows the fraction.
		j := strings.IndexAny(frac, "Z+-")
		if j == -1 {
			s = s[:i]
		} else {
			s = s[:i] + frac[j:]
		}
	}
	if !strings.ContainsAny(s, "Z+-") {
		s += "Z"
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, false
	}
	return t.UTC().Unix(), true
}

// caption flattens a payload into the message text sent to the chat.
// The expiry is rendered as time remaining relative to now.
func caption(p Payload, now time.Time) string {
	var b strings.Builder
	b.WriteString("New Twitch drop: ")
	b.WriteString(p.Title)
	if p.Body != "" {
		b.WriteString("\n")
		b.WriteString(p.Body)
	}
	if p.ExpiresUnix > 0 {
		b.WriteString("\nEnds ")
		b.WriteString(relativeTo(now, time.Unix(p.ExpiresUnix, 0)))
	}
	return b.String()
}

func relativeTo(now, end time.Time) string {
	d := end.Sub(now)
	if d <= 0 {
		return "soon"
	}
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("in %d days", int(d.Hours())/24)
	case d >= time.Hour:
		return fmt.Sprintf("in %dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	}
}
