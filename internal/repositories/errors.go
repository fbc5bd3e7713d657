package repositories

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by the Mongo repositories when no document matches.
var ErrNotFound = errors.New("document not found")

// objectID parses a hex id; malformed ids cannot match anything and report ErrNotFound.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid ID format %q: %w", id, ErrNotFound)
	}
	return oid, nil
}
