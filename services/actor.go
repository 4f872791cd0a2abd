package services

import "github.com/google/uuid"

// Actor identifies who performs an administrative write and the request it belongs to
type Actor struct {
	UserID    uuid.UUID
	RequestID string
}

// NewActor creates an Actor
func NewActor(userID uuid.UUID, requestID string) Actor {
	return Actor{UserID: userID, RequestID: requestID}
}
