package sct

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/logging"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
)

// outputTailLines bounds how much tool output is kept for error messages.
const outputTailLines = 20

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps Spinal Cord Toolbox CLI interactions.
type Client struct {
	cfg     *config.Config
	dir     string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// New constructs a toolbox client from configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	client := &Client{
		cfg:     cfg,
		timeout: time.Duration(cfg.SCT.CommandTimeout) * time.Second,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// InDir returns a client whose commands run with dir as working
// directory, so implicit outputs (warp fields, registered volumes)
// land beside the contrast being processed.
func (c *Client) InDir(dir string) *Client {
	derived := *c
	derived.dir = dir
	return &derived
}

// SetLogger replaces the logger used for tool output forwarding.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Version reports the installed toolbox release.
func (c *Client) Version(ctx context.Context) (string, error) {
	var lines []string
	err := c.run(ctx, "version", c.cfg.VersionBinary(), nil, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	})
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", services.Wrap(services.ErrExternalTool, "sct", "version", "no version output", nil)
	}
	return lines[0], nil
}

// DeepSeg runs automatic cord segmentation on an image. The tool writes
// <image>_seg.nii.gz next to the input and, when qcDir is non-empty, a
// QC snapshot.
func (c *Client) DeepSeg(ctx context.Context, image, contrast, qcDir string) error {
	args := []string{"-i", image, "-c", contrast}
	if qcDir != "" {
		args = append(args, "-qc", qcDir)
	}
	return c.run(ctx, "deepseg", c.cfg.DeepSegBinary(), args, nil)
}

// CreateMask builds a cylindrical mask centered on the cord centerline
// derived from a segmentation.
func (c *Client) CreateMask(ctx context.Context, image, centerlineSeg, size, out string) error {
	args := []string{
		"-i", image,
		"-p", "centerline," + centerlineSeg,
		"-size", size,
		"-o", out,
	}
	return c.run(ctx, "create mask", c.cfg.CreateMaskBinary(), args, nil)
}

// RegisterSpec describes one multimodal registration.
type RegisterSpec struct {
	Src    string
	Dst    string
	SrcSeg string
	DstSeg string
	Mask   string
	Param  string
	QCDir  string
}

// Register aligns Src to Dst, producing <src>_reg and the forward and
// inverse warp fields in the working directory.
func (c *Client) Register(ctx context.Context, spec RegisterSpec) error {
	args := []string{"-i", spec.Src, "-d", spec.Dst}
	if spec.SrcSeg != "" {
		args = append(args, "-iseg", spec.SrcSeg)
	}
	if spec.DstSeg != "" {
		args = append(args, "-dseg", spec.DstSeg)
	}
	if spec.Mask != "" {
		args = append(args, "-m", spec.Mask)
	}
	if spec.Param != "" {
		args = append(args, "-param", spec.Param)
	}
	if spec.QCDir != "" {
		args = append(args, "-qc", spec.QCDir)
	}
	return c.run(ctx, "register", c.cfg.RegisterBinary(), args, nil)
}

// ResampleNN resamples src onto the dst grid with an identity transform
// and nearest-neighbour interpolation. Used to carry the soft
// segmentation into another contrast's space without smoothing it.
func (c *Client) ResampleNN(ctx context.Context, src, dst, out string) error {
	args := []string{"-i", src, "-d", dst, "-identity", "1", "-x", "nn"}
	if out != "" {
		args = append(args, "-o", out)
	}
	return c.run(ctx, "resample", c.cfg.RegisterBinary(), args, nil)
}

// Concat stacks the input volumes along the time axis into out.
func (c *Client) Concat(ctx context.Context, out string, inputs ...string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "sct", "concat", "no input volumes", nil)
	}
	args := append([]string{"-i"}, inputs...)
	args = append(args, "-concat", "t", "-o", out)
	return c.run(ctx, "concat", c.cfg.ImageBinary(), args, nil)
}

// MeanT averages a 4-D volume along the time axis.
func (c *Client) MeanT(ctx context.Context, in, out string) error {
	args := []string{"-i", in, "-mean", "t", "-o", out}
	return c.run(ctx, "mean", c.cfg.MathsBinary(), args, nil)
}

// QC generates a quality-control snapshot for an image/segmentation
// pair. process names the step being reviewed, e.g. "sct_deepseg_sc".
func (c *Client) QC(ctx context.Context, image, seg, process, qcDir string) error {
	args := []string{"-i", image, "-s", seg, "-p", process, "-qc", qcDir}
	return c.run(ctx, "qc", c.cfg.QCBinary(), args, nil)
}

func (c *Client) run(ctx context.Context, operation, binary string, args []string, onLine func(string)) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The executor scans stdout and stderr from separate goroutines, so
	// the callback must serialize access to tail and onLine state.
	var mu sync.Mutex
	tail := make([]string, 0, outputTailLines)
	forward := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		c.logger.Debug("tool output", logging.String("binary", binary), logging.String("line", line))
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			if len(tail) == outputTailLines {
				copy(tail, tail[1:])
				tail = tail[:outputTailLines-1]
			}
			tail = append(tail, trimmed)
		}
		if onLine != nil {
			onLine(line)
		}
	}

	c.logger.Info("invoking tool",
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
	)

	if err := c.exec.Run(runCtx, c.dir, binary, args, forward); err != nil {
		message := binary
		if len(tail) > 0 {
			message = binary + ": " + strings.Join(tail, " | ")
		}
		return services.Wrap(services.ErrExternalTool, "sct", operation, message, err)
	}
	return nil
}
