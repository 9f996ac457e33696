package pool

import (
	"github.com/google/uuid"

	"github.com/conduit-lang/reflector/internal/orm/platform"
)

// Conn is one pooled backend handle. It is lent to a single caller at a time and goes back
// with Pool.Release.
type Conn struct {
	ID  uuid.UUID
	URL string

	platform  *platform.Platform
	pool      *Pool
	destroyed bool
}

// Database returns the query capability of the underlying backend
func (c *Conn) Database() (platform.Database, error) {
	return c.platform.Database()
}

// Kind returns the backend kind
func (c *Conn) Kind() platform.Kind {
	return c.platform.Kind()
}

// Close destroys the connection instead of returning it to the pool. The pool forgets it and
// reports a DisposeEvent, since the regular path is Release. Closing twice is a no-op.
func (c *Conn) Close() error {
	return c.pool.destroy(c)
}

// DisposeReason tells why a connection was destroyed outside the release path
type DisposeReason int

const (
	// ClosedWhileBorrowed means the borrower called Conn.Close instead of Release
	ClosedWhileBorrowed DisposeReason = iota
	// BorrowedAtTeardown means the pool was closed while the connection was still lent out
	BorrowedAtTeardown
)

// String returns the string representation of the reason
func (r DisposeReason) String() string {
	switch r {
	case ClosedWhileBorrowed:
		return "closed_while_borrowed"
	case BorrowedAtTeardown:
		return "borrowed_at_teardown"
	default:
		return "unknown"
	}
}

// DisposeEvent describes a connection destroyed without going through Release
type DisposeEvent struct {
	ConnID uuid.UUID
	URL    string
	Reason DisposeReason
}

// Observer receives dispose events. It is called outside the pool lock.
type Observer func(DisposeEvent)
