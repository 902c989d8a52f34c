// Package snapshot defines the archive for rendered page snapshots.
//
// The harvester keeps the raw HTML it rendered so items can be re-extracted
// later without hitting the source site again. Implementations live in the
// memory, local, and gcs subpackages.
package snapshot

import (
	"context"
	"io"
)

// Store persists one rendered page snapshot and returns a URI for it.
type Store interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
