package config

import (
	"fmt"
	"regexp"
	"strings"
)

var maskSizePattern = regexp.MustCompile(`^[0-9]+(mm)?$`)

// Validate checks the configuration for values the pipeline cannot run
// with. It is called after normalize, so paths are already expanded.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir (or PATH_DATA) is required")
	}
	if c.Paths.ProcessedDir == "" {
		problems = append(problems, "paths.processed_dir (or PATH_DATA_PROCESSED) is required")
	}
	if c.Paths.ResultsDir == "" {
		problems = append(problems, "paths.results_dir (or PATH_RESULTS) is required")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir (or PATH_LOG) is required")
	}
	if c.Paths.QCDir == "" {
		problems = append(problems, "paths.qc_dir (or PATH_QC) is required")
	}

	if c.Mask.Size == "" || !maskSizePattern.MatchString(c.Mask.Size) {
		problems = append(problems, fmt.Sprintf("mask.size %q must be a voxel count or millimetre size like 35mm", c.Mask.Size))
	}
	if c.Mask.Process != "centerline" {
		problems = append(problems, fmt.Sprintf("mask.process %q is unsupported; only centerline masks are produced", c.Mask.Process))
	}

	for name, param := range map[string]string{
		"registration.t1w_param":    c.Registration.T1wParam,
		"registration.t2star_param": c.Registration.T2starParam,
		"registration.dwi_param":    c.Registration.DWIParam,
	} {
		if strings.TrimSpace(param) == "" {
			problems = append(problems, name+" must not be empty")
		} else if !strings.Contains(param, "step=1") {
			problems = append(problems, name+" must define at least step=1")
		}
	}

	if c.SCT.CommandTimeout < 0 {
		problems = append(problems, "sct.command_timeout must not be negative")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
