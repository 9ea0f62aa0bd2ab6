package notification

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	// ErrDispatchFailed wraps a failed email or push delivery. Senders log it
	// and move on; there is no retry queue.
	ErrDispatchFailed = errors.New("notification dispatch failed")
)
