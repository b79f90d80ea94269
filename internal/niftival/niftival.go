// Package niftival inspects NIfTI headers to validate pipeline
// outputs. It checks shape and datatype only; voxel arithmetic stays
// with the external toolbox.
package niftival

import (
	"fmt"

	"github.com/henghuang/nifti"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/services"
)

// NIfTI-1 datatype codes relevant to segmentation volumes.
const (
	DatatypeUint8   = 2
	DatatypeFloat32 = 16
	DatatypeFloat64 = 64
)

// Header carries the fields the validators look at.
type Header struct {
	Dim      [8]int16
	Datatype int16
}

// ReadHeader parses a NIfTI header from disk. The underlying library
// panics on malformed or missing files, so the panic is converted into
// a recoverable error.
func ReadHeader(path string) (header Header, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			err = fmt.Errorf("parse nifti header %q: %v", path, panicErr)
		}
	}()

	var raw nifti.Nifti1Header
	raw.LoadHeader(path)
	header.Dim = raw.Dim
	header.Datatype = raw.Datatype
	return header, nil
}

// FloatValued reports whether the header's datatype can hold
// non-binary probabilities.
func (h Header) FloatValued() bool {
	return h.Datatype == DatatypeFloat32 || h.Datatype == DatatypeFloat64
}

// SpatialDims returns the x/y/z extents.
func (h Header) SpatialDims() [3]int16 {
	return [3]int16{h.Dim[1], h.Dim[2], h.Dim[3]}
}

// CheckSoftSeg validates a soft segmentation against the reference
// segmentation it was averaged in the space of: the datatype must be
// float valued and the spatial dimensions must match.
func CheckSoftSeg(soft, ref Header) error {
	if !soft.FloatValued() {
		return services.Wrap(services.ErrValidation, "softseg", "validate",
			fmt.Sprintf("datatype code %d is not float valued", soft.Datatype), nil)
	}
	if soft.SpatialDims() != ref.SpatialDims() {
		return services.Wrap(services.ErrValidation, "softseg", "validate",
			fmt.Sprintf("dimensions %v do not match reference %v", soft.SpatialDims(), ref.SpatialDims()), nil)
	}
	return nil
}

// CheckSoftSegFiles reads both headers from disk and validates them.
func CheckSoftSegFiles(softPath, refPath string) error {
	soft, err := ReadHeader(softPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "softseg", "read soft segmentation", err.Error(), nil)
	}
	ref, err := ReadHeader(refPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "softseg", "read reference segmentation", err.Error(), nil)
	}
	return CheckSoftSeg(soft, ref)
}
