package schema

import "errors"

// Catalog error types
var (
	// ErrTableNotFound is returned when a table lookup has no match in the catalog
	ErrTableNotFound = errors.New("table not found")

	// ErrUnresolvableReference is returned when a foreign key points at a table or column
	// that does not exist in the catalog snapshot
	ErrUnresolvableReference = errors.New("unresolvable foreign reference")

	// ErrDuplicateTable is returned when two tables share the same schema and name
	ErrDuplicateTable = errors.New("duplicate table")

	// ErrUnknownParent is returned when a table inherits from a table missing from the catalog
	ErrUnknownParent = errors.New("unknown parent table")

	// ErrInheritanceCycle is returned when a table is its own ancestor
	ErrInheritanceCycle = errors.New("inheritance cycle")

	// ErrInheritedColumn is returned when an inherited column is not found on any ancestor
	ErrInheritedColumn = errors.New("inherited column not found on ancestor")

	// ErrUnknownFormat is returned when a snapshot file has an unsupported encoding
	ErrUnknownFormat = errors.New("unknown snapshot format")
)
