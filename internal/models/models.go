// internal/models/models.go
package models

import "time"

// Status is the lifecycle position of a photo.
type Status string

const (
	StatusPending         Status = "pending"
	StatusVariationsReady Status = "variations_ready"
	StatusApproved        Status = "approved"
	StatusPublished       Status = "published"
)

var statusRank = map[Status]int{
	StatusPending:         0,
	StatusVariationsReady: 1,
	StatusApproved:        2,
	StatusPublished:       3,
}

// Rank orders statuses along pending -> variations_ready -> approved -> published.
// Unknown statuses rank below pending.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Advance returns next when it is further along than s, otherwise s.
func (s Status) Advance(next Status) Status {
	if next.Rank() > s.Rank() {
		return next
	}
	return s
}

// AtLeast reports whether s has reached other.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

type Photo struct {
	ID        string    `json:"id"`
	SourceRef string    `json:"source_ref"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Photo) RecordID() string { return p.ID }

// Adjustment holds the parameters a variation was rendered with.
type Adjustment struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Warmth     int     `json:"warmth"`
}

type Variation struct {
	ID         string     `json:"id"`
	PhotoID    string     `json:"photo_id"`
	Intensity  int        `json:"intensity"`
	Label      string     `json:"label"`
	ImageRef   string     `json:"image_ref"`
	Adjustment Adjustment `json:"adjustment"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (v Variation) RecordID() string { return v.ID }

// Approval is append-only; a photo may collect several.
type Approval struct {
	ID          string    `json:"id"`
	PhotoID     string    `json:"photo_id"`
	VariationID string    `json:"variation_id"`
	Feedback    string    `json:"feedback,omitempty"`
	ApprovedAt  time.Time `json:"approved_at"`
}

func (a Approval) RecordID() string { return a.ID }

type Publication struct {
	ID             string    `json:"id"`
	PhotoID        string    `json:"photo_id"`
	Caption        string    `json:"caption"`
	ExternalPostID string    `json:"external_post_id"`
	PublishedAt    time.Time `json:"published_at"`
	Status         string    `json:"status"`
}

func (p Publication) RecordID() string { return p.ID }
