package config

// Registration parameter strings mirror the processing protocol: a
// coarse center-of-mass alignment on the segmentations, then for T1w a
// slicewise b-spline refinement. T2star and mean-DWI stop at the coarse
// step because their slab coverage is too thin for the refinement.
const (
	defaultT1wParam    = "step=1,type=seg,algo=centermass;step=2,type=seg,algo=bsplinesyn,slicewise=1,iter=3"
	defaultT2starParam = "step=1,type=seg,algo=centermass"
	defaultDWIParam    = "step=1,type=seg,algo=centermass"
)

// Default returns the baseline configuration before file and
// environment values are applied.
func Default() Config {
	return Config{
		Paths: Paths{},
		Mask: Mask{
			Size:    "35mm",
			Process: "centerline",
		},
		Registration: Registration{
			T1wParam:    defaultT1wParam,
			T2starParam: defaultT2starParam,
			DWIParam:    defaultDWIParam,
		},
		SCT: SCT{
			CommandTimeout: 3600,
			QCEnabled:      true,
		},
		Anima: Anima{
			ConfigPath: "~/.anima/config.txt",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
