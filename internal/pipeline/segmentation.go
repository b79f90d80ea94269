package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/bids"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/fileutil"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/sct"
)

// segmenter implements the fallback every contrast shares: a
// curator-supplied manual segmentation wins when the dataset carries
// one, otherwise automatic segmentation runs exactly once.
type segmenter struct {
	cfg    *config.Config
	ws     *Workspace
	sct    *sct.Client
	logger *slog.Logger
}

// segmentIfMissing makes sure <image>_seg exists in the contrast's
// working directory and returns its absolute path. image is the
// extensionless volume name, e.g. "sub-01_T1w".
func (s *segmenter) segmentIfMissing(ctx context.Context, c bids.Contrast, image string) (string, error) {
	dir := s.ws.ContrastDir(c)
	segFile := bids.File(bids.SegName(image))
	segPath := filepath.Join(dir, segFile)
	client := s.sct.InDir(dir)
	client.SetLogger(s.logger)

	manual := bids.ManualSegPath(s.ws.DataDir, s.ws.Subject, c, image)
	if fileutil.PathExists(manual) {
		s.logger.Info("using manual segmentation",
			logging.String(logging.FieldContrast, c.Name),
			logging.String("manual_path", manual),
		)
		if err := fileutil.CopyFileVerified(manual, segPath); err != nil {
			return "", services.Wrap(services.ErrValidation, "segment", c.Name, "copy manual segmentation", err)
		}
		if s.qcDir() != "" {
			if err := client.QC(ctx, bids.File(image), segFile, s.cfg.DeepSegBinary(), s.qcDir()); err != nil {
				return "", err
			}
		}
	} else {
		s.logger.Info("running automatic segmentation",
			logging.String(logging.FieldContrast, c.Name),
			logging.String("image", image),
		)
		if err := client.DeepSeg(ctx, bids.File(image), c.SegFlag, s.qcDir()); err != nil {
			return "", err
		}
	}

	if !fileutil.PathExists(segPath) {
		return "", services.Wrap(services.ErrExternalTool, "segment", c.Name, "segmentation output missing: "+segPath, nil)
	}
	return segPath, nil
}

func (s *segmenter) qcDir() string {
	if !s.cfg.SCT.QCEnabled {
		return ""
	}
	return s.ws.QCDir
}
