package app

import "github.com/google/uuid"

// newID returns a time-ordered UUID, falling back to a random one if the
// clock sequence cannot be read.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
