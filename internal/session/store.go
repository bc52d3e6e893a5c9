// Package session provides the durable, append-only per-session turn log.
package session

import (
	"context"

	"github.com/hyperjump/kaiwa/internal/models"
)

// Store persists conversation turns per session. Session ids are opaque
// strings; the store assumes nothing about their derivation. Appends within
// one session keep their order on read-back. There is no size cap: history
// grows without bound (an accepted limitation, see DESIGN.md).
type Store interface {
	// Append durably records one turn at the end of the session's log.
	Append(ctx context.Context, sessionID string, turn models.Turn) error
	// History returns all turns ever appended for the session, oldest
	// first. An unknown session id yields an empty slice, not an error.
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	// Healthy reports whether the backing store is reachable. Exposed
	// read-only on the status boundary.
	Healthy(ctx context.Context) bool
	Close() error
}
