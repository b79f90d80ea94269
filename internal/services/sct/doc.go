// Package sct wraps the Spinal Cord Toolbox command-line tools the
// pipeline sequences: automatic cord segmentation, mask creation,
// multimodal registration, image arithmetic, and QC report generation.
// Command execution goes through an Executor interface so stage logic
// is testable without the toolbox installed.
package sct
