// Package runs persists pipeline run history in SQLite: one record per
// `softseg process` invocation, carrying the subject, the stage
// reached, the toolbox version, and the failure message when a stage
// aborted the run. The `softseg runs` commands read from it.
package runs
