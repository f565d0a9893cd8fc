package models

import "github.com/google/uuid"

// NewID returns a fresh entity identifier. V7 UUIDs carry a millisecond
// timestamp prefix plus random bits, so parser-assigned IDs sort in
// creation order and collisions are negligible.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		// Entropy exhaustion only; fall back to random.
		return uuid.New()
	}
	return id
}
