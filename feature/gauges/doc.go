// Package gauges implements the river gauge telemetry feature.
//
// It keeps a local mirror of a remote feature-service feed of water level
// readings: each reading is classified into a flood tier, appended to the
// observed station's history, and rolled up into a latest-per-station
// directory used by the map view.
//
// # Pipeline
//
// A sync cycle runs fetch, normalize, group, reconcile, in that order:
//  1. feed: page through the upstream query endpoint (full history on
//     bootstrap, an EditDate window afterwards).
//  2. Normalize: drop records without a usable gauge name, classify the
//     tier from the per-station thresholds, resolve display times.
//  3. GroupByStation: bucket readings by normalized station key.
//  4. reconcile: refresh the directory and append only unseen rows to
//     each station's history. Appends are idempotent, so replaying a
//     window or a partial page never duplicates rows.
//
// # Components
//
//   - Service: Owns the writer mutex and orchestrates sync cycles, the
//     persisted cursor, and the read surface.
//   - Handler: Exposes HTTP endpoints for the snapshot, per-station
//     history, CSV export, and the manual sync trigger.
//   - scheduler: Background loop, one full bootstrap cycle then
//     incremental cycles on an interval with backoff on failure.
//   - alerts, cache, archive: Optional side channels (Kafka flood
//     alerts, Redis snapshot cache, object-storage CSV archive).
//   - Loader: Registers the feature with the application.
//
// # HTTP Endpoints
//
//   - GET /gauges/data : Latest reading per station.
//   - GET /gauges/history/:station : Ordered reading log for one station.
//   - GET /gauges/history/:station/csv : Same log as a CSV download.
//   - POST /gauges/sync : Run a sync cycle now (?full=true for full history).
package gauges
