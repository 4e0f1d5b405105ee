package domain

import "github.com/google/uuid"

// NewID returns a new random UUID string for use as an entity ID.
func NewID() string {
	return uuid.New().String()
}
