package pool

import "errors"

var (
	// ErrBackendUnreachable is returned when a new connection cannot be established
	ErrBackendUnreachable = errors.New("backend unreachable")

	// ErrDoubleRelease is returned when a connection already back in the pool is released again
	ErrDoubleRelease = errors.New("connection already released")

	// ErrForeignHandle is returned for connections this pool does not currently lend out
	ErrForeignHandle = errors.New("connection not borrowed from this pool")

	// ErrPoolClosed is returned by every operation after Close
	ErrPoolClosed = errors.New("pool closed")
)
