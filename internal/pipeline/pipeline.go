package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/bids"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/runs"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/sct"
)

// Pipeline sequences the per-subject processing stages.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	sct    *sct.Client
	store  *runs.Store
	ws     *Workspace
}

// Summary reports the outcome of one run for CLI presentation.
type Summary struct {
	Subject    string
	RunUUID    string
	SCTVersion string
	Host       string
	Status     runs.Status
	Duration   time.Duration
	QCDir      string
}

// New assembles a pipeline for one subject.
func New(cfg *config.Config, logger *slog.Logger, client *sct.Client, store *runs.Store, subject string) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if client == nil {
		return nil, errors.New("toolbox client is required")
	}
	if store == nil {
		return nil, errors.New("run store is required")
	}
	if err := bids.ValidateSubject(subject); err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "subject", err.Error(), nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		sct:    client,
		store:  store,
		ws:     NewWorkspace(cfg, subject),
	}, nil
}

// Run executes every stage in order, failing fast on the first error.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithSubject(ctx, p.ws.Subject)
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)

	version, err := p.sct.Version(ctx)
	if err != nil {
		return Summary{}, err
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	if err := p.cfg.EnsureDirectories(); err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "pipeline", "directories", "", err)
	}
	if err := p.ws.Acquire(); err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "pipeline", "lock", "", err)
	}
	defer p.ws.Release()

	run, err := p.store.Begin(ctx, runID, p.ws.Subject, version, host)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "pipeline", "record run", "", err)
	}

	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("sct_version", version),
		logging.String("host", host),
	)

	env := &stageEnv{cfg: p.cfg, ws: p.ws, sct: p.sct, logger: logger}
	stages := []Handler{
		&syncStage{stageEnv: env},
		&t2wStage{stageEnv: env},
		&maskStage{stageEnv: env},
		&registerStage{stageEnv: env, contrast: bids.T1w, param: p.cfg.Registration.T1wParam},
		&registerStage{stageEnv: env, contrast: bids.T2star, param: p.cfg.Registration.T2starParam},
		&mtsStage{stageEnv: env},
		&dwiStage{stageEnv: env, param: p.cfg.Registration.DWIParam},
		&softsegStage{stageEnv: env},
		&resampleStage{stageEnv: env},
		&validateStage{stageEnv: env},
	}

	for _, handler := range stages {
		opts := execOptions{Logger: logger, Store: p.store, Handler: handler, Run: run}
		if err := runStage(ctx, opts); err != nil {
			return p.summary(run, version, host), err
		}
	}

	run.SetCompleted()
	if err := p.store.Update(ctx, run); err != nil {
		return p.summary(run, version, host), services.Wrap(services.ErrTransient, "pipeline", "record completion", "", err)
	}
	if err := p.writeResult(run); err != nil {
		logger.Warn("failed to write result summary", logging.Error(err))
	}

	logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Duration("duration", run.Duration(time.Now().UTC())),
	)
	return p.summary(run, version, host), nil
}

// writeResult stores the per-subject run outcome under the results
// directory, one JSON document per subject.
func (p *Pipeline) writeResult(run *runs.Run) error {
	payload := struct {
		Subject    string  `json:"subject"`
		RunUUID    string  `json:"run_uuid"`
		Status     string  `json:"status"`
		SCTVersion string  `json:"sct_version"`
		Host       string  `json:"host"`
		DurationS  float64 `json:"duration_seconds"`
		SoftSeg    string  `json:"softseg"`
	}{
		Subject:    run.Subject,
		RunUUID:    run.UUID,
		Status:     string(run.Status),
		SCTVersion: run.SCTVersion,
		Host:       run.Host,
		DurationS:  run.Duration(time.Now().UTC()).Seconds(),
		SoftSeg:    filepath.Join(p.ws.AnatDir(), bids.File(bids.SoftSegName(run.Subject))),
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	target := filepath.Join(p.cfg.Paths.ResultsDir, run.Subject+".json")
	return os.WriteFile(target, append(encoded, '\n'), 0o644)
}

func (p *Pipeline) summary(run *runs.Run, version, host string) Summary {
	return Summary{
		Subject:    run.Subject,
		RunUUID:    run.UUID,
		SCTVersion: version,
		Host:       host,
		Status:     run.Status,
		Duration:   run.Duration(time.Now().UTC()),
		QCDir:      p.cfg.Paths.QCDir,
	}
}
