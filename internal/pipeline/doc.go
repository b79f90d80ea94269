// Package pipeline sequences the per-subject processing: sync the raw
// data into the workspace, segment each contrast (preferring manual
// segmentations), build the cord mask, register the other contrasts to
// T2w space, average three segmentations into the soft segmentation,
// resample it into MTS space, and validate the result. Execution is
// strictly sequential and fail-fast: the first failing stage aborts
// the run and no later stage executes.
package pipeline
