package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/bids"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
)

// Workspace binds a subject to the directory layout a run works in.
type Workspace struct {
	Subject      string
	DataDir      string
	ProcessedDir string
	ResultsDir   string
	QCDir        string

	lock *flock.Flock
}

// NewWorkspace builds the workspace paths for a subject.
func NewWorkspace(cfg *config.Config, subject string) *Workspace {
	lockPath := filepath.Join(cfg.Paths.ProcessedDir, subject+".lock")
	return &Workspace{
		Subject:      subject,
		DataDir:      cfg.Paths.DataDir,
		ProcessedDir: cfg.Paths.ProcessedDir,
		ResultsDir:   cfg.Paths.ResultsDir,
		QCDir:        cfg.Paths.QCDir,
		lock:         flock.New(lockPath),
	}
}

// SubjectDir is the working copy of the subject under the processed root.
func (w *Workspace) SubjectDir() string {
	return filepath.Join(w.ProcessedDir, w.Subject)
}

// AnatDir is the anatomical working directory.
func (w *Workspace) AnatDir() string {
	return filepath.Join(w.SubjectDir(), "anat")
}

// DWIDir is the diffusion working directory.
func (w *Workspace) DWIDir() string {
	return filepath.Join(w.SubjectDir(), "dwi")
}

// RawSubjectDir is the subject's folder in the raw dataset.
func (w *Workspace) RawSubjectDir() string {
	return filepath.Join(w.DataDir, w.Subject)
}

// ContrastDir returns the working directory holding a contrast.
func (w *Workspace) ContrastDir(c bids.Contrast) string {
	return filepath.Join(w.SubjectDir(), c.Folder)
}

// Acquire takes the per-subject lock so two runs cannot process the
// same workspace concurrently.
func (w *Workspace) Acquire() error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire subject lock: %w", err)
	}
	if !ok {
		return errors.New("another run is already processing " + w.Subject)
	}
	return nil
}

// Release drops the per-subject lock.
func (w *Workspace) Release() {
	_ = w.lock.Unlock()
}
