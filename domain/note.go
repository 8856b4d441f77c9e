package domain

import "time"

// Priority of a note. The zero value is not valid; drafts default to medium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the three known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank maps a priority to its sort weight. Unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Note is the central entity of the service. OwnerID is set once at creation
// and never appears in update payloads; PublicID is the only handle exposed
// on the unauthenticated share path.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Priority    Priority  `json:"priority"`
	Archived    bool      `json:"archived"`
	Starred     bool      `json:"starred"`
	PublicID    string    `json:"publicId"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PublicNote is the projection served through a share link. It deliberately
// carries no ids, no owner, no flags and no timestamps.
type PublicNote struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Public returns the share projection of n.
func (n Note) Public() PublicNote {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return PublicNote{Title: n.Title, Description: n.Description, Tags: tags}
}
