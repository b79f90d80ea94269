package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/bids"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/fileutil"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/niftival"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services/sct"
)

const maskFile = "mask_t2.nii.gz"

// tmpConcatFile is the 4-D stack averaged into the soft segmentation;
// it is removed once the average exists.
const tmpConcatFile = "tmp_concat_segs.nii.gz"

// stageEnv carries the dependencies every stage shares.
type stageEnv struct {
	cfg    *config.Config
	ws     *Workspace
	sct    *sct.Client
	logger *slog.Logger
}

func (e *stageEnv) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// client returns a toolbox client working in dir with the stage logger.
func (e *stageEnv) client(dir string) *sct.Client {
	c := e.sct.InDir(dir)
	c.SetLogger(e.logger)
	return c
}

func (e *stageEnv) segmenter() *segmenter {
	return &segmenter{cfg: e.cfg, ws: e.ws, sct: e.sct, logger: e.logger}
}

func (e *stageEnv) qcDir() string {
	if !e.cfg.SCT.QCEnabled {
		return ""
	}
	return e.ws.QCDir
}

// syncStage copies the subject's raw data into the processed tree so
// every derived file lands outside the source dataset.
type syncStage struct {
	*stageEnv
}

func (s *syncStage) Name() string { return "sync" }

func (s *syncStage) Execute(ctx context.Context) error {
	raw := s.ws.RawSubjectDir()
	if !fileutil.DirExists(raw) {
		return services.Wrap(services.ErrNotFound, s.Name(), "subject data", raw, nil)
	}
	if err := fileutil.CopyTree(raw, s.ws.SubjectDir()); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "copy subject tree", "", err)
	}

	participants := filepath.Join(s.ws.DataDir, "participants.tsv")
	if fileutil.PathExists(participants) {
		dst := filepath.Join(s.ws.ProcessedDir, "participants.tsv")
		if err := fileutil.CopyFile(participants, dst); err != nil {
			return services.Wrap(services.ErrTransient, s.Name(), "copy participants.tsv", "", err)
		}
	}
	s.logger.Info("subject data synced", logging.String("workspace", s.ws.SubjectDir()))
	return nil
}

// t2wStage segments the T2w volume. Its segmentation anchors the rest
// of the pipeline: every other contrast registers against it and the
// soft segmentation lives in its space.
type t2wStage struct {
	*stageEnv
}

func (s *t2wStage) Name() string { return "segment_t2w" }

func (s *t2wStage) Execute(ctx context.Context) error {
	image := bids.ImageName(s.ws.Subject, bids.T2w)
	_, err := s.segmenter().segmentIfMissing(ctx, bids.T2w, image)
	return err
}

// maskStage builds the cord-centered cylindrical mask from the T2w
// segmentation. Registrations use it to keep the deformation local.
type maskStage struct {
	*stageEnv
}

func (s *maskStage) Name() string { return "create_mask" }

func (s *maskStage) Execute(ctx context.Context) error {
	image := bids.ImageName(s.ws.Subject, bids.T2w)
	client := s.client(s.ws.AnatDir())
	err := client.CreateMask(ctx,
		bids.File(image),
		bids.File(bids.SegName(image)),
		s.cfg.Mask.Size,
		maskFile,
	)
	if err != nil {
		return err
	}
	if !fileutil.PathExists(filepath.Join(s.ws.AnatDir(), maskFile)) {
		return services.Wrap(services.ErrExternalTool, s.Name(), "mask", "mask output missing", nil)
	}
	return nil
}

// registerStage segments a contrast, registers it to T2w, and segments
// the registered volume so its cord shape can join the soft average.
type registerStage struct {
	*stageEnv
	contrast bids.Contrast
	param    string
}

func (s *registerStage) Name() string { return "register_" + strings.ToLower(s.contrast.Name) }

func (s *registerStage) Execute(ctx context.Context) error {
	image := bids.ImageName(s.ws.Subject, s.contrast)
	if _, err := s.segmenter().segmentIfMissing(ctx, s.contrast, image); err != nil {
		return err
	}
	return s.registerToT2w(ctx, s.contrast, image)
}

// registerToT2w warps image into T2w space and segments the result.
// The destination lives in the anatomical directory, so its paths are
// absolute while the source stays relative to the contrast directory.
func (s *registerStage) registerToT2w(ctx context.Context, c bids.Contrast, image string) error {
	dir := s.ws.ContrastDir(c)
	client := s.client(dir)

	t2w := bids.ImageName(s.ws.Subject, bids.T2w)
	spec := sct.RegisterSpec{
		Src:    bids.File(image),
		Dst:    filepath.Join(s.ws.AnatDir(), bids.File(t2w)),
		SrcSeg: bids.File(bids.SegName(image)),
		DstSeg: filepath.Join(s.ws.AnatDir(), bids.File(bids.SegName(t2w))),
		Mask:   filepath.Join(s.ws.AnatDir(), maskFile),
		Param:  s.param,
		QCDir:  s.qcDir(),
	}
	if err := client.Register(ctx, spec); err != nil {
		return err
	}

	registered := bids.RegisteredName(image)
	if !fileutil.PathExists(filepath.Join(dir, bids.File(registered))) {
		return services.Wrap(services.ErrExternalTool, s.Name(), "register", "registered volume missing: "+registered, nil)
	}
	return client.DeepSeg(ctx, bids.File(registered), c.SegFlag, s.qcDir())
}

// mtsStage segments the MT-on volume. MTS stays in native space; it
// receives the soft segmentation later by resampling.
type mtsStage struct {
	*stageEnv
}

func (s *mtsStage) Name() string { return "segment_mts" }

func (s *mtsStage) Execute(ctx context.Context) error {
	image := bids.ImageName(s.ws.Subject, bids.MTS)
	_, err := s.segmenter().segmentIfMissing(ctx, bids.MTS, image)
	return err
}

// dwiStage averages the diffusion series over time, segments the mean,
// and registers it to T2w. The diffusion cord shape is kept for QC and
// downstream use but stays out of the soft average.
type dwiStage struct {
	*stageEnv
	param string
}

func (s *dwiStage) Name() string { return "process_dwi" }

func (s *dwiStage) Execute(ctx context.Context) error {
	dir := s.ws.DWIDir()
	client := s.client(dir)

	image := bids.ImageName(s.ws.Subject, bids.DWI)
	mean := bids.MeanName(image)
	if err := client.MeanT(ctx, bids.File(image), bids.File(mean)); err != nil {
		return err
	}

	if _, err := s.segmenter().segmentIfMissing(ctx, bids.DWI, mean); err != nil {
		return err
	}

	reg := &registerStage{stageEnv: s.stageEnv, contrast: bids.DWI, param: s.param}
	return reg.registerToT2w(ctx, bids.DWI, mean)
}

// softsegStage averages the three cord segmentations that live in T2w
// space into the soft segmentation.
type softsegStage struct {
	*stageEnv
}

func (s *softsegStage) Name() string { return "soft_average" }

func (s *softsegStage) Execute(ctx context.Context) error {
	dir := s.ws.AnatDir()
	client := s.client(dir)
	subject := s.ws.Subject

	t2wSeg := bids.File(bids.SegName(bids.ImageName(subject, bids.T2w)))
	t1wRegSeg := bids.File(bids.SegName(bids.RegisteredName(bids.ImageName(subject, bids.T1w))))
	t2starRegSeg := bids.File(bids.SegName(bids.RegisteredName(bids.ImageName(subject, bids.T2star))))

	for _, seg := range []string{t2wSeg, t1wRegSeg, t2starRegSeg} {
		if !fileutil.PathExists(filepath.Join(dir, seg)) {
			return services.Wrap(services.ErrValidation, s.Name(), "inputs", "segmentation missing: "+seg, nil)
		}
	}

	if err := client.Concat(ctx, tmpConcatFile, t2wSeg, t1wRegSeg, t2starRegSeg); err != nil {
		return err
	}

	softseg := bids.File(bids.SoftSegName(subject))
	if err := client.MeanT(ctx, tmpConcatFile, softseg); err != nil {
		return err
	}
	if err := fileutil.RemoveIfExists(filepath.Join(dir, tmpConcatFile)); err != nil {
		return services.Wrap(services.ErrTransient, s.Name(), "cleanup", tmpConcatFile, err)
	}

	if s.qcDir() != "" {
		t2w := bids.File(bids.ImageName(subject, bids.T2w))
		if err := client.QC(ctx, t2w, softseg, s.cfg.DeepSegBinary(), s.qcDir()); err != nil {
			return err
		}
	}

	s.logger.Info("soft segmentation built", logging.String("softseg", softseg))
	return nil
}

// resampleStage carries the soft segmentation into MTS space with an
// identity transform and nearest-neighbour interpolation, so the soft
// values survive unchanged.
type resampleStage struct {
	*stageEnv
}

func (s *resampleStage) Name() string { return "resample_softseg_mts" }

func (s *resampleStage) Execute(ctx context.Context) error {
	client := s.client(s.ws.AnatDir())
	subject := s.ws.Subject
	return client.ResampleNN(ctx,
		bids.File(bids.SoftSegName(subject)),
		bids.File(bids.ImageName(subject, bids.MTS)),
		bids.File(bids.SoftSegInSpace(subject, bids.MTS)),
	)
}

// validateStage checks the soft segmentation headers: float-valued
// voxels and spatial dimensions matching the reference volume.
type validateStage struct {
	*stageEnv
}

func (s *validateStage) Name() string { return "validate" }

func (s *validateStage) Execute(ctx context.Context) error {
	dir := s.ws.AnatDir()
	subject := s.ws.Subject

	checks := []struct {
		soft string
		ref  string
	}{
		{bids.File(bids.SoftSegName(subject)), bids.File(bids.ImageName(subject, bids.T2w))},
		{bids.File(bids.SoftSegInSpace(subject, bids.MTS)), bids.File(bids.ImageName(subject, bids.MTS))},
	}
	for _, check := range checks {
		soft := filepath.Join(dir, check.soft)
		ref := filepath.Join(dir, check.ref)
		if err := niftival.CheckSoftSegFiles(soft, ref); err != nil {
			return err
		}
		s.logger.Info("soft segmentation validated",
			logging.String("softseg", check.soft),
			logging.String("reference", check.ref),
		)
	}
	return nil
}
