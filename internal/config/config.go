package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout the pipeline works in. Each field
// maps to one of the environment variables the sct_run_batch harness
// exports.
type Paths struct {
	DataDir      string `toml:"data_dir"`      // PATH_DATA: raw BIDS dataset
	ProcessedDir string `toml:"processed_dir"` // PATH_DATA_PROCESSED: working copies and derived volumes
	ResultsDir   string `toml:"results_dir"`   // PATH_RESULTS: per-run result artifacts
	LogDir       string `toml:"log_dir"`       // PATH_LOG: run logs and the run database
	QCDir        string `toml:"qc_dir"`        // PATH_QC: quality-control report output
}

// Mask contains parameters for the cord-centered mask built from the
// T2w segmentation.
type Mask struct {
	// Size is passed to sct_create_mask, e.g. "35mm".
	Size string `toml:"size"`
	// Process selects the mask centering method; the pipeline centers
	// on the cord centerline derived from the T2w segmentation.
	Process string `toml:"process"`
}

// Registration contains the per-contrast parameter strings handed to
// sct_register_multimodal.
type Registration struct {
	T1wParam    string `toml:"t1w_param"`
	T2starParam string `toml:"t2star_param"`
	DWIParam    string `toml:"dwi_param"`
}

// SCT contains settings for the Spinal Cord Toolbox invocations.
type SCT struct {
	// CommandTimeout bounds each tool invocation, in seconds. Zero
	// disables the bound.
	CommandTimeout int `toml:"command_timeout"`
	// QCEnabled controls whether QC snapshots are generated after each
	// major step.
	QCEnabled bool `toml:"qc_enabled"`
}

// Anima contains settings for the optional segmentation-performance
// evaluation.
type Anima struct {
	// ConfigPath points at the standard ANIMA configuration file that
	// records where the binaries live.
	ConfigPath string `toml:"config_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the softseg CLI.
//
// Configuration sections by subsystem:
//   - Paths: dataset, workspace, results, log, and QC directories
//   - Mask: cord mask geometry
//   - Registration: sct_register_multimodal parameter strings
//   - SCT: toolbox invocation settings
//   - Anima: metrics evaluation settings
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Mask         Mask         `toml:"mask"`
	Registration Registration `toml:"registration"`
	SCT          SCT          `toml:"sct"`
	Anima        Anima        `toml:"anima"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default
// configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/softseg/config.toml")
}

// Load locates, parses, and validates a configuration file. The
// returned config has all path fields expanded and normalized, with
// harness environment variables applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/softseg/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("softseg.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into. The raw
// data directory is deliberately excluded: it is an input and its
// absence is a configuration error, not something to paper over.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProcessedDir, c.Paths.ResultsDir, c.Paths.LogDir, c.Paths.QCDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunDBPath returns the location of the SQLite run-history database.
func (c *Config) RunDBPath() string {
	return filepath.Join(c.Paths.LogDir, "runs.db")
}

// DeepSegBinary returns the automatic cord segmentation executable name.
func (c *Config) DeepSegBinary() string { return "sct_deepseg_sc" }

// CreateMaskBinary returns the mask creation executable name.
func (c *Config) CreateMaskBinary() string { return "sct_create_mask" }

// RegisterBinary returns the multimodal registration executable name.
func (c *Config) RegisterBinary() string { return "sct_register_multimodal" }

// MathsBinary returns the image arithmetic executable name.
func (c *Config) MathsBinary() string { return "sct_maths" }

// ImageBinary returns the image manipulation executable name used for
// volume concatenation.
func (c *Config) ImageBinary() string { return "sct_image" }

// QCBinary returns the quality-control report executable name.
func (c *Config) QCBinary() string { return "sct_qc" }

// VersionBinary returns the toolbox version executable name.
func (c *Config) VersionBinary() string { return "sct_version" }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
