package drops

// Reward is a single reward entry inside a drop campaign.
type Reward struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageURL"`
}

// Drop is one active campaign as reported by the feed. EndAt is the raw
// ISO-8601 string; it may carry sub-second precision and is parsed lazily
// at render time so an unparseable value never blocks a match.
type Drop struct {
	GameDisplayName string   `json:"gameDisplayName"`
	Rewards         []Reward `json:"rewards"`
	EndAt           string   `json:"endAt"`
}
