// Package ingest abstracts where telemetry comes from. Production rigs
// feed a real-time data source; development and tests use the built-in
// simulator.
package ingest

import (
	"context"

	"rigwatch/pkg/telemetry"
)

// Source produces one raw telemetry snapshot per call. Fetch must honor
// ctx cancellation; a returned Reading carries raw parameters only, the
// pipeline derives the rest.
type Source interface {
	Fetch(ctx context.Context) (telemetry.Reading, error)
}
