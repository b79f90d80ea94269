package bids_test

import (
	"path/filepath"
	"testing"

	"github.com/rohanbanerjee/contrast-agnostic-softseg-spinalcord/internal/bids"
)

func TestValidateSubject(t *testing.T) {
	valid := []string{"sub-01", "sub-amu02", "sub-unf05"}
	for _, subject := range valid {
		if err := bids.ValidateSubject(subject); err != nil {
			t.Fatalf("expected %q to validate: %v", subject, err)
		}
	}

	invalid := []string{"", "sub-", "01", "sub-01/anat", "sub 01"}
	for _, subject := range invalid {
		if err := bids.ValidateSubject(subject); err == nil {
			t.Fatalf("expected %q to be rejected", subject)
		}
	}
}

func TestNamingConventions(t *testing.T) {
	image := bids.ImageName("sub-01", bids.T2star)
	if image != "sub-01_T2star" {
		t.Fatalf("unexpected image name: %s", image)
	}
	if got := bids.SegName(image); got != "sub-01_T2star_seg" {
		t.Fatalf("unexpected seg name: %s", got)
	}
	if got := bids.RegisteredName(image); got != "sub-01_T2star_reg" {
		t.Fatalf("unexpected registered name: %s", got)
	}
	if got := bids.WarpName("sub-01_T1w", "sub-01_T2w"); got != "warp_sub-01_T1w2sub-01_T2w" {
		t.Fatalf("unexpected warp name: %s", got)
	}
	if got := bids.SoftSegName("sub-01"); got != "sub-01_T2w_softseg" {
		t.Fatalf("unexpected soft seg name: %s", got)
	}
	if got := bids.File("sub-01_T2w"); got != "sub-01_T2w.nii.gz" {
		t.Fatalf("unexpected file name: %s", got)
	}
	if got := bids.MeanName("sub-01_dwi"); got != "sub-01_dwi_mean" {
		t.Fatalf("unexpected mean name: %s", got)
	}
}

func TestMTSUsesAcquisitionTag(t *testing.T) {
	if got := bids.ImageName("sub-01", bids.MTS); got != "sub-01_acq-MTon_MTS" {
		t.Fatalf("unexpected MTS image name: %s", got)
	}
	if got := bids.SoftSegInSpace("sub-01", bids.MTS); got != "sub-01_acq-MTon_MTS_softseg" {
		t.Fatalf("unexpected soft seg in MTS space: %s", got)
	}
	if bids.MTS.SegFlag != "t2s" {
		t.Fatalf("MTS should segment with the t2s contrast flag, got %s", bids.MTS.SegFlag)
	}
}

func TestManualSegPath(t *testing.T) {
	got := bids.ManualSegPath("/data", "sub-01", bids.DWI, "sub-01_dwi_mean")
	want := filepath.Join("/data", "derivatives", "labels", "sub-01", "dwi", "sub-01_dwi_mean_seg-manual.nii.gz")
	if got != want {
		t.Fatalf("manual seg path mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestSubjectDir(t *testing.T) {
	got := bids.SubjectDir("/proc", "sub-02", bids.T1w)
	if got != filepath.Join("/proc", "sub-02", "anat") {
		t.Fatalf("unexpected subject dir: %s", got)
	}
}

func TestContrastsOrder(t *testing.T) {
	order := bids.Contrasts()
	if len(order) != 5 {
		t.Fatalf("expected 5 contrasts, got %d", len(order))
	}
	if order[0] != bids.T2w {
		t.Fatal("T2w must come first: all registrations target its space")
	}
}
