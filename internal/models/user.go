package models

import "time"

// User is the application's denormalized copy of a provider account.
// The canonical record lives in the external identity service.
type User struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
