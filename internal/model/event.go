package model

import "time"

// Event is promotional context (webinar, conference, launch) attached to
// a campaign and injected into generation prompts.
type Event struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	URL         string    `db:"url" json:"url"`
	Description string    `db:"description" json:"description"`
}
