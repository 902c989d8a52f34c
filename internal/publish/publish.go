// Package publish defines the outbound event contract.
//
// The harvester emits one ingest-report event per completed batch so
// downstream consumers (search indexers, pricing jobs) can react without
// polling the catalog.
package publish

import "context"

// Publisher sends one JSON-encodable payload to a named topic and returns the
// broker's message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
