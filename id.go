package reviewdb

import "github.com/gocql/gocql"
import "github.com/google/uuid"

// IDGenerator produces the primary key of each inserted row.
type IDGenerator interface {
	NewID() (gocql.UUID, error)
}

type randomGenerator struct{}

// NewIDGenerator returns a generator of random (version 4) UUIDs.
func NewIDGenerator() IDGenerator {
	return randomGenerator{}
}

func (randomGenerator) NewID() (gocql.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return gocql.UUID{}, err
	}
	return gocql.UUID(id), nil
}
