package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/runs"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
)

// execOptions controls stage execution and run persistence behavior.
type execOptions struct {
	Logger  *slog.Logger
	Store   *runs.Store
	Handler Handler
	Run     *runs.Run
}

// runStage executes one stage and applies the run transition semantics
// shared by every stage in the sequence.
func runStage(ctx context.Context, opts execOptions) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable")
	}
	if opts.Store == nil {
		return fmt.Errorf("run store is required")
	}
	if opts.Run == nil {
		return fmt.Errorf("run record is required")
	}

	stageName := opts.Handler.Name()
	stageCtx := services.WithStage(ctx, stageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)

	opts.Run.SetStage(stageName)
	if err := opts.Store.Update(stageCtx, opts.Run); err != nil {
		return fmt.Errorf("persist stage transition: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx); err != nil {
		return handleFailure(stageCtx, stageLogger, opts.Store, opts.Run, err)
	}

	if err := opts.Store.Update(stageCtx, opts.Run); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
	)

	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, store *runs.Store, run *runs.Run, stageErr error) error {
	message := "stage failed"
	if stageErr != nil {
		message = strings.TrimSpace(services.Details(stageErr))
		if message == "" {
			message = strings.TrimSpace(stageErr.Error())
		}
	}
	category := services.Category(stageErr)
	run.SetFailed(message, category)

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_category", category),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if err := store.Update(ctx, run); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	return stageErr
}
