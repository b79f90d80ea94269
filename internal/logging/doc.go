// Package logging provides the structured slog setup shared by the CLI
// and the pipeline: console and JSON handlers, standardized field
// names, and context plumbing that stamps subject and stage onto every
// record emitted while a pipeline run is in flight.
package logging
