package relationships

import "errors"

var (
	// ErrUnknownSubject is returned when the table being classified is not part of the catalog
	ErrUnknownSubject = errors.New("subject table not in catalog")

	// ErrInvalidRelationType is returned when a reference carries no known relationship flags
	ErrInvalidRelationType = errors.New("invalid relationship type")
)
