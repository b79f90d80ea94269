// Package services defines shared utilities consumed by the pipeline
// stages and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp subject identifiers, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate
//     failures into consistent run statuses.
//
// Use these helpers when wiring new stage logic so operational
// behaviour (error handling, observability) stays uniform across the
// pipeline.
package services
