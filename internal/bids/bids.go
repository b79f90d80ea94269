// Package bids owns the file naming conventions the pipeline relies on:
// BIDS-style subject layouts, segmentation suffixes, manual-label
// derivative paths, and registration output names. Everything here is a
// pure function so the contracts stay testable without touching disk.
package bids

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Ext is the compressed NIfTI extension used for every volume.
const Ext = ".nii.gz"

// ManualSegSuffix marks curator-supplied segmentations in the
// derivatives tree.
const ManualSegSuffix = "_seg-manual"

// Contrast describes one MRI acquisition handled by the pipeline.
type Contrast struct {
	// Name is the human-readable label used in logs and QC reports.
	Name string
	// Suffix is the BIDS filename suffix, e.g. "T2star".
	Suffix string
	// Folder is the subject subdirectory holding the acquisition.
	Folder string
	// SegFlag is the contrast flag passed to the automatic
	// segmentation tool (-c).
	SegFlag string
}

var (
	T1w    = Contrast{Name: "T1w", Suffix: "T1w", Folder: "anat", SegFlag: "t1"}
	T2w    = Contrast{Name: "T2w", Suffix: "T2w", Folder: "anat", SegFlag: "t2"}
	T2star = Contrast{Name: "T2star", Suffix: "T2star", Folder: "anat", SegFlag: "t2s"}
	MTS    = Contrast{Name: "MTS", Suffix: "acq-MTon_MTS", Folder: "anat", SegFlag: "t2s"}
	DWI    = Contrast{Name: "DWI", Suffix: "dwi", Folder: "dwi", SegFlag: "dwi"}
)

// Contrasts returns every contrast in processing order.
func Contrasts() []Contrast {
	return []Contrast{T2w, T1w, T2star, MTS, DWI}
}

// ValidateSubject checks that a subject identifier follows the
// BIDS "sub-<label>" convention and carries no path separators.
func ValidateSubject(subject string) error {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return fmt.Errorf("subject identifier is empty")
	}
	if !strings.HasPrefix(subject, "sub-") {
		return fmt.Errorf("subject %q must start with %q", subject, "sub-")
	}
	if len(subject) == len("sub-") {
		return fmt.Errorf("subject %q is missing a label", subject)
	}
	if strings.ContainsAny(subject, "/\\ ") {
		return fmt.Errorf("subject %q contains invalid characters", subject)
	}
	return nil
}

// ImageName builds the extensionless image name for a subject/contrast
// pair, e.g. "sub-01_T2star".
func ImageName(subject string, c Contrast) string {
	return subject + "_" + c.Suffix
}

// File appends the NIfTI extension to an extensionless image name.
func File(name string) string {
	return name + Ext
}

// SegName derives the working segmentation name for an image.
func SegName(image string) string {
	return image + "_seg"
}

// MeanName derives the temporal-mean volume name, used for DWI.
func MeanName(image string) string {
	return image + "_mean"
}

// RegisteredName derives the name of an image warped into another space.
func RegisteredName(image string) string {
	return image + "_reg"
}

// WarpName derives the deformation-field name for a src-to-dst
// registration, e.g. "warp_sub-01_T1w2sub-01_T2w".
func WarpName(src, dst string) string {
	return "warp_" + src + "2" + dst
}

// SoftSegName derives the soft (averaged) segmentation name for a
// subject. The soft segmentation lives in T2w space.
func SoftSegName(subject string) string {
	return ImageName(subject, T2w) + "_softseg"
}

// SoftSegInSpace derives the soft segmentation name after resampling
// into another contrast's space, e.g. "sub-01_acq-MTon_MTS_softseg".
func SoftSegInSpace(subject string, c Contrast) string {
	return ImageName(subject, c) + "_softseg"
}

// SubjectDir returns the acquisition directory for a subject under the
// given root, e.g. <root>/sub-01/anat.
func SubjectDir(root, subject string, c Contrast) string {
	return filepath.Join(root, subject, c.Folder)
}

// ManualSegPath returns the expected curator-supplied segmentation for
// an image under the dataset derivatives tree.
func ManualSegPath(dataRoot, subject string, c Contrast, image string) string {
	return filepath.Join(dataRoot, "derivatives", "labels", subject, c.Folder, image+ManualSegSuffix+Ext)
}
