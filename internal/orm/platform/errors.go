package platform

import "errors"

var (
	// ErrNotImplemented is returned for backends that are recognised but have no implementation
	ErrNotImplemented = errors.New("backend not implemented")

	// ErrUnsupportedURL is returned when the URL scheme names no known backend
	ErrUnsupportedURL = errors.New("unsupported database url")

	// ErrClosed is returned when a closed platform is used
	ErrClosed = errors.New("platform closed")
)
