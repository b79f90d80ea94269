package pipeline

import (
	"context"
	"log/slog"
)

// Handler describes the contract the pipeline driver needs from each stage.
type Handler interface {
	Name() string
	Execute(context.Context) error
}

// LoggerAware lets the driver hand a stage-scoped logger to handlers
// that emit their own log lines.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
