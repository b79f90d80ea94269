// Package preflight runs the readiness checks the process command
// performs before touching any subject data: directory access, free
// disk space, and external binary availability.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/config"
	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// MinFreeBytes is the free-space floor on the processed-data volume.
// Registration intermediates for one subject stay well under this.
const MinFreeBytes = 2 << 30

// RunAll executes all preflight checks for the given config and subject.
func RunAll(cfg *config.Config, subject string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckSubjectData(cfg.Paths.DataDir, subject),
		CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir),
		CheckFreeSpace("Processed volume", cfg.Paths.ProcessedDir, MinFreeBytes),
		CheckToolkit(),
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSubjectData verifies the subject has an anat/ acquisition folder
// in the raw dataset. The dwi/ folder is not required here: its absence
// fails the DWI stage with a precise error instead.
func CheckSubjectData(dataDir, subject string) Result {
	const name = "Subject raw data"
	anat := filepath.Join(dataDir, subject, "anat")
	info, err := os.Stat(anat)
	if err != nil || !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found under %s", subject, dataDir)}
	}
	return Result{Name: name, Passed: true, Detail: anat}
}

// CheckFreeSpace verifies the filesystem holding path has at least
// minBytes available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, need %.1f GiB", float64(free)/(1<<30), float64(minBytes)/(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))}
}

// CheckToolkit verifies every required external binary resolves on PATH.
func CheckToolkit() Result {
	const name = "Spinal Cord Toolbox"
	statuses := deps.CheckBinaries(deps.Toolkit())
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing binaries: %v", missing)}
	}
	return Result{Name: name, Passed: true, Detail: "all required binaries found"}
}
