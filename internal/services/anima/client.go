// Package anima wraps the ANIMA segmentation performance analyzer used
// by `softseg metrics`. The binary location is read from the standard
// ANIMA configuration file (~/.anima/config.txt) rather than PATH,
// matching how ANIMA installs itself.
package anima

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
)

// AnalyzerBinary is the ANIMA tool evaluating a prediction against a
// reference segmentation.
const AnalyzerBinary = "animaSegPerfAnalyzer"

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (string, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
	return string(out), err
}

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

// Client invokes the ANIMA analyzer.
type Client struct {
	binDir string
	exec   Executor
}

// New constructs a client from the ANIMA configuration file path.
func New(configPath string, opts ...Option) (*Client, error) {
	binDir, err := binariesDir(configPath)
	if err != nil {
		return nil, err
	}
	client := &Client{binDir: binDir, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// binariesDir extracts the `anima = <dir>` entry from the ANIMA
// configuration file.
func binariesDir(configPath string) (string, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return "", fmt.Errorf("open anima config: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "anima") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found || strings.TrimSpace(key) != "anima" {
			continue
		}
		dir := strings.TrimSpace(value)
		if dir == "" {
			continue
		}
		return dir, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read anima config: %w", err)
	}
	return "", errors.New("anima config has no `anima = <dir>` entry")
}

// AnalyzerPath returns the resolved analyzer binary path.
func (c *Client) AnalyzerPath() string {
	return filepath.Join(c.binDir, AnalyzerBinary)
}

// Version reports the analyzer release string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.exec.Run(ctx, c.AnalyzerPath(), []string{"--version"})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "anima", "version", strings.TrimSpace(out), err)
	}
	return strings.TrimSpace(out), nil
}

// Analyze evaluates a binarized prediction against a binarized
// reference, writing per-metric XML under outPrefix. Surface distance
// and segmentation evaluation are enabled; lesion detection is not.
func (c *Client) Analyze(ctx context.Context, pred, ref, outPrefix string) error {
	args := []string{"-i", pred, "-r", ref, "-o", outPrefix, "-d", "-s", "-X"}
	out, err := c.exec.Run(ctx, c.AnalyzerPath(), args)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "anima", "analyze", strings.TrimSpace(out), err)
	}
	return nil
}
