package config

import (
	"os"
	"strings"
)

// Environment variables exported by the sct_run_batch harness. When
// set, they take precedence over the corresponding [paths] keys.
const (
	EnvData          = "PATH_DATA"
	EnvDataProcessed = "PATH_DATA_PROCESSED"
	EnvResults       = "PATH_RESULTS"
	EnvLog           = "PATH_LOG"
	EnvQC            = "PATH_QC"
)

func (c *Config) normalize() error {
	applyEnvOverrides(c)

	pathFields := []*string{
		&c.Paths.DataDir,
		&c.Paths.ProcessedDir,
		&c.Paths.ResultsDir,
		&c.Paths.LogDir,
		&c.Paths.QCDir,
		&c.Anima.ConfigPath,
	}
	for _, field := range pathFields {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Mask.Size = strings.TrimSpace(c.Mask.Size)
	c.Mask.Process = strings.TrimSpace(c.Mask.Process)
	c.Registration.T1wParam = strings.TrimSpace(c.Registration.T1wParam)
	c.Registration.T2starParam = strings.TrimSpace(c.Registration.T2starParam)
	c.Registration.DWIParam = strings.TrimSpace(c.Registration.DWIParam)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}

func applyEnvOverrides(c *Config) {
	overrides := []struct {
		env   string
		field *string
	}{
		{EnvData, &c.Paths.DataDir},
		{EnvDataProcessed, &c.Paths.ProcessedDir},
		{EnvResults, &c.Paths.ResultsDir},
		{EnvLog, &c.Paths.LogDir},
		{EnvQC, &c.Paths.QCDir},
	}
	for _, override := range overrides {
		if value, ok := os.LookupEnv(override.env); ok && strings.TrimSpace(value) != "" {
			*override.field = value
		}
	}
}
