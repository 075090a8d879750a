// Package session tracks cookie sessions and reports their creation and
// destruction.
package session

import (
	"context"
	"time"
)

// Session is one tracked client session.
type Session struct {
	ID      string
	Expires time.Time
}

// Store persists session expiry.
type Store interface {
	// Touch creates or extends the session and reports whether it was new.
	Touch(ctx context.Context, id string, expires time.Time) (created bool, err error)
	// Remove deletes the session and reports whether it existed.
	Remove(ctx context.Context, id string) (bool, error)
	// Expired removes and returns every session expiring at or before now.
	Expired(ctx context.Context, now time.Time) ([]Session, error)
}
