package db

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these in calling code.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")
)

// InsertOutcome distinguishes the three results of an insert-if-absent
// write. Failed carries an error alongside it.
type InsertOutcome int

const (
	InsertFailed InsertOutcome = iota
	Inserted
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already-present"
	default:
		return "failed"
	}
}

// classifyInsert maps an insert error to the tri-state outcome. A duplicate
// key is a success from the caller's point of view: the document is there.
func classifyInsert(err error) (InsertOutcome, error) {
	switch {
	case err == nil:
		return Inserted, nil
	case mongo.IsDuplicateKeyError(err):
		return AlreadyPresent, nil
	default:
		return InsertFailed, err
	}
}
