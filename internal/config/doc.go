// Package config loads, normalizes, and validates the TOML
// configuration used by the softseg CLI. The batch-harness environment
// variables (PATH_DATA, PATH_DATA_PROCESSED, PATH_RESULTS, PATH_LOG,
// PATH_QC) override the corresponding [paths] keys so the binary can
// run unchanged under sct_run_batch.
package config
