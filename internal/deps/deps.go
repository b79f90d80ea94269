// Package deps reports the availability of the external binaries the
// pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Toolkit lists the Spinal Cord Toolbox commands the pipeline invokes,
// plus the optional ANIMA analyzer used by `softseg metrics`.
func Toolkit() []Requirement {
	return []Requirement{
		{Name: "SCT version", Command: "sct_version", Description: "Reports the toolbox release recorded in run summaries"},
		{Name: "Cord segmentation", Command: "sct_deepseg_sc", Description: "Automatic spinal cord segmentation"},
		{Name: "Mask creation", Command: "sct_create_mask", Description: "Cord-centered mask from the T2w segmentation"},
		{Name: "Registration", Command: "sct_register_multimodal", Description: "Slicewise multimodal registration"},
		{Name: "Image maths", Command: "sct_maths", Description: "Temporal averaging of segmentations"},
		{Name: "Image tools", Command: "sct_image", Description: "Concatenation of segmentations along time"},
		{Name: "QC report", Command: "sct_qc", Description: "Quality-control snapshots"},
		{Name: "ANIMA analyzer", Command: "animaSegPerfAnalyzer", Description: "Segmentation performance metrics", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of non-optional requirements that
// are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Command)
		}
	}
	return missing
}
