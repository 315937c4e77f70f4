package models

import "time"

// StagedFile tracks a transient local copy awaiting cleanup.
type StagedFile struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
