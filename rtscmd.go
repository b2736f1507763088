package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwsl/uvconvert/rts"
)

// rtsInFileCommand renders a calibration in file for either a patch or peel
// run.
func rtsInFileCommand(args []string) error {
	fs := flag.NewFlagSet("rts-in-file", flag.ExitOnError)
	mode := fs.String("mode", "patch", "Calibration mode: patch or peel")
	numCals := fs.Uint("num-iono-calibrators", 1000, "Ionospheric calibrator count (peel)")
	numPeel := fs.Uint("num-peel", 1000, "Sources to peel (peel)")
	baseDir := fs.String("base-dir", ".", "Directory holding the observation's visibility files")
	baseFilename := fs.String("base-filename", "*_gpubox", "Pattern matching input visibility data")
	metafits := fs.String("metafits", "", "Metafits file for the observation")
	useFlags := fs.Bool("use-archive-flags", false, "Import reflagged RTS_<obsid> archives from the base dir")
	srclist := fs.String("srclist", "", "Sky model source list")
	obsid := fs.Uint("obsid", 0, "10-digit observation id")
	raHours := fs.Float64("ra-hours", 0, "Image centre right ascension, decimal hours")
	decDeg := fs.Float64("dec-deg", 0, "Image centre declination, decimal degrees")
	useFEEBeam := fs.Bool("use-fee-beam", false, "Use the FEE beam model instead of the analytic beam")
	beamFile := fs.String("fee-beam-file", "", "FEE beam model path (falls back to $"+rts.BeamFileEnvVar+")")
	output := fs.String("output", "", "Output path (stdout when empty)")
	fs.Parse(args)

	if *srclist == "" {
		return fmt.Errorf("a source catalogue file is required")
	}

	feeBeam, err := rts.ResolveBeamFile(*beamFile, *useFEEBeam)
	if err != nil {
		return err
	}

	params := rts.Params{
		BaseDir:               *baseDir,
		BaseFilename:          *baseFilename,
		Metafits:              *metafits,
		UseArchiveFlags:       *useFlags,
		SourceCatalogueFile:   *srclist,
		DoRxCorrections:       true,
		DoRawDataCorrections:  true,
		ReadGpuboxDirect:      true,
		ReadAllFromSingleFile: true,
		FEEBeamFile:           feeBeam,
		Obsid:                 uint32(*obsid),
		ImageCentreRAHours:    *raHours,
		ImageCentreDecDeg:     *decDeg,
		CorrDumpTimeSec:       2.0,
		CorrDumpsPerCadence:   32,
		NumIntegrationBins:    7,
		NumIterations:         1,
		FineChannelWidthMHz:   0.04,
		NumFineChannels:       32,
		FScrunch:              2,
		BaseFreqMHz:           0,
		NumPrimaryCalibrators: 1,
	}
	for band := uint8(1); band <= 24; band++ {
		params.SubbandIDs = append(params.SubbandIDs, band)
	}

	switch *mode {
	case "patch":
		params.Mode = rts.Patch
	case "peel":
		params.Mode = rts.Peel
		params.NumIonoCalibrators = uint32(*numCals)
		params.NumSourcesToPeel = uint32(*numPeel)
	default:
		return fmt.Errorf("unknown mode %q; expected patch or peel", *mode)
	}

	rendered := params.Render()
	if *output == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(*output, []byte(rendered), 0644)
}
