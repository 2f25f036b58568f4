package model

import "time"

// LiveEvent is one concert or live show a user attended.
// Only its owner may change or delete it.
type LiveEvent struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	Date      Date      `json:"date"`
	Time      string    `json:"time,omitempty"` // "HH:MM", optional
	Venue     string    `json:"venue"`
	Artist    string    `json:"artist,omitempty"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LiveEventInput carries the user-editable fields of a LiveEvent.
type LiveEventInput struct {
	Title  string `json:"title"`
	Date   Date   `json:"date"`
	Time   string `json:"time"`
	Venue  string `json:"venue"`
	Artist string `json:"artist"`
	Link   string `json:"link"`
}

// Apply copies the editable fields onto e.
func (in LiveEventInput) Apply(e *LiveEvent) {
	e.Title = in.Title
	e.Date = in.Date
	e.Time = in.Time
	e.Venue = in.Venue
	e.Artist = in.Artist
	e.Link = in.Link
}
