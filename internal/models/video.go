package models

import "time"

// Transcription states for an uploaded video.
const (
	TranscriptionInProgress = "IN_PROGRESS"
	TranscriptionCompleted  = "COMPLETED"
	TranscriptionFailed     = "FAILED"
)

// Video records an uploaded asset and the outcome of its transcription.
type Video struct {
	ID                  int64     `json:"id"`
	UserEmail           string    `json:"user_email"`
	Name                string    `json:"name"`
	ObjectKey           string    `json:"object_key"`
	URL                 string    `json:"url"`
	TranscriptionStatus string    `json:"transcription_status"`
	Transcript          string    `json:"transcript,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}
