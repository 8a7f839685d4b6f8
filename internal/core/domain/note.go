package domain

import "time"

// Note is a user-owned text entry.
type Note struct {
	ID        string
	UserID    string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
