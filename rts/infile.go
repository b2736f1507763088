// Package rts renders plain-text configuration ("in") files for the
// downstream calibration program.
package rts

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const generatorVersion = "0.3.0"

// BeamFileEnvVar names the environment variable consulted when no beam file
// path is given explicitly.
const BeamFileEnvVar = "MWA_BEAM_FILE"

// Mode is the type of calibration processing being configured.
type Mode int

const (
	// Patch derives direction-independent calibration solutions.
	Patch Mode = iota
	// Peel subtracts sources using stored calibration solutions.
	Peel
)

func (m Mode) String() string {
	if m == Peel {
		return "peel"
	}
	return "patch"
}

// Params holds everything needed to render an in file.
type Params struct {
	Mode Mode
	// NumIonoCalibrators is the number of sources used as ionospheric
	// calibrators (peel only).
	NumIonoCalibrators uint32
	// NumSourcesToPeel is the number of sources subtracted from the output
	// (peel only).
	NumSourcesToPeel uint32

	// BaseDir contains the observation's visibility files and flag archives.
	BaseDir string
	// BaseFilename matches the input visibility data, e.g. "*_gpubox".
	BaseFilename string
	// Metafits is the observation's metafits path, if there is one.
	Metafits string
	// UseArchiveFlags imports reflagged archives named RTS_<obsid> from
	// BaseDir.
	UseArchiveFlags bool
	// SourceCatalogueFile is the sky model source list.
	SourceCatalogueFile string

	DoRFIFlagging         bool
	DoRxCorrections       bool
	DoRawDataCorrections  bool
	ReadGpuboxDirect      bool
	ReadAllFromSingleFile bool
	AddNodeNumberToName   bool

	// FEEBeamFile is the FEE beam model path; empty means the analytic beam.
	FEEBeamFile string

	// Obsid should have 10 digits; it identifies the reflagged archives.
	Obsid uint32
	// ImageCentreRAHours and ImageCentreDecDeg centre the output image.
	ImageCentreRAHours float64
	ImageCentreDecDeg  float64
	// PointingCentreHAHours and PointingCentreDecDeg are only written when
	// set; dipole delays override them when available.
	PointingCentreHAHours *float64
	PointingCentreDecDeg  *float64

	CorrDumpTimeSec     float64
	CorrDumpsPerCadence uint32
	NumIntegrationBins  uint32
	NumIterations       uint32

	FineChannelWidthMHz float64
	NumFineChannels     uint32
	FScrunch            uint8
	BaseFreqMHz         float64
	SubbandIDs          []uint8

	NumPrimaryCalibrators uint32
	DisableSourceVetoes   bool
	WriteVisToUVFITS      bool
}

// ResolveBeamFile applies the beam-file policy: an explicit path wins, else
// the environment is consulted, else an error if the FEE beam was requested
// at all.
func ResolveBeamFile(explicit string, useFEEBeam bool) (string, error) {
	if !useFEEBeam {
		return "", nil
	}
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(BeamFileEnvVar); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("rts: the FEE beam was requested, but no beam file was supplied and %s is unset", BeamFileEnvVar)
}

func onOff(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Render produces the in-file text.
func (p *Params) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "// RTS in file to %s obsid %d\n", p.Mode, p.Obsid)
	fmt.Fprintf(&b, "// Generated by uvconvert v%s\n", generatorVersion)
	fmt.Fprintf(&b, "// at %s UTC\n\n", time.Now().UTC().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&b, "FscrunchChan=%d\n\n", p.FScrunch)

	subbands := make([]string, len(p.SubbandIDs))
	for i, s := range p.SubbandIDs {
		subbands[i] = strconv.Itoa(int(s))
	}
	fmt.Fprintf(&b, "SubBandIDs=%s\n\n", strings.Join(subbands, ","))

	b.WriteString("StartProcessingAt=0\n\n")

	b.WriteString("DoCalibration=1\n")
	fmt.Fprintf(&b, "generateDIjones=%s\n", onOff(p.Mode == Patch))
	fmt.Fprintf(&b, "useStoredCalibrationFiles=%s\n", onOff(p.Mode == Peel))
	b.WriteString("applyDIcalibration=1\n\n")

	fmt.Fprintf(&b, "BaseFilename=%s/%s\n", p.BaseDir, p.BaseFilename)
	if p.Metafits != "" {
		fmt.Fprintf(&b, "ReadMetafitsFile=1\nMetafitsFilename=%s\n", p.Metafits)
	} else {
		b.WriteString("ReadMetafitsFile=0\n")
	}
	if p.UseArchiveFlags {
		fmt.Fprintf(&b, "ImportCotterFlags=1\nImportCotterBasename=%s/RTS_%d\n", p.BaseDir, p.Obsid)
	} else {
		b.WriteString("ImportCotterFlags=0\n")
	}
	fmt.Fprintf(&b, "doRFIflagging=%s\n", onOff(p.DoRFIFlagging))
	fmt.Fprintf(&b, "doMWArxCorrections=%s\n", onOff(p.DoRxCorrections))
	fmt.Fprintf(&b, "doRawDataCorrections=%s\n", onOff(p.DoRawDataCorrections))
	fmt.Fprintf(&b, "ReadGpuboxDirect=%s\n", onOff(p.ReadGpuboxDirect))
	fmt.Fprintf(&b, "ReadAllFromSingleFile=%s\n", onOff(p.ReadAllFromSingleFile))
	fmt.Fprintf(&b, "AddNodeNumberToFilename=%s\n", onOff(p.AddNodeNumberToName))
	b.WriteString("UsePacketInput=0\n")
	b.WriteString("UseThreadedVI=0\n\n")

	if p.FEEBeamFile != "" {
		fmt.Fprintf(&b, "// FEE beam\nTileBeamType=1\nhdf5Filename=%s\n\n", p.FEEBeamFile)
	} else {
		b.WriteString("// Analytic beam\nuseFastPrimaryBeamModels=1\n\n")
	}

	fmt.Fprintf(&b, "CorrDumpTime=%v\n", p.CorrDumpTimeSec)
	fmt.Fprintf(&b, "CorrDumpsPerCadence=%d\n", p.CorrDumpsPerCadence)
	fmt.Fprintf(&b, "NumberOfIntegrationBins=%d\n", p.NumIntegrationBins)
	fmt.Fprintf(&b, "NumberOfIterations=%d\n\n", p.NumIterations)

	fmt.Fprintf(&b, "ObservationFrequencyBase=%v\n", p.BaseFreqMHz)
	fmt.Fprintf(&b, "NumberOfChannels=%d\n", p.NumFineChannels)
	fmt.Fprintf(&b, "ChannelBandwidth=%v\n\n", p.FineChannelWidthMHz)

	fmt.Fprintf(&b, "ObservationImageCentreRA=%v\n", p.ImageCentreRAHours)
	fmt.Fprintf(&b, "ObservationImageCentreDec=%v\n", p.ImageCentreDecDeg)
	b.WriteString("// Set these if delays are not in the metafits or there is no metafits.\n")
	if p.PointingCentreHAHours != nil {
		fmt.Fprintf(&b, "ObservationPointCentreHA=%v\n", *p.PointingCentreHAHours)
	} else {
		b.WriteString("// ObservationPointCentreHA=\n")
	}
	if p.PointingCentreDecDeg != nil {
		fmt.Fprintf(&b, "ObservationPointCentreDec=%v\n\n", *p.PointingCentreDecDeg)
	} else {
		b.WriteString("// ObservationPointCentreDec=\n\n")
	}

	fmt.Fprintf(&b, "SourceCatalogueFile=%s\n", p.SourceCatalogueFile)
	fmt.Fprintf(&b, "NumberOfCalibrators=%d\n", p.NumPrimaryCalibrators)
	fmt.Fprintf(&b, "DisableSourcelistVetos=%s\n", onOff(p.DisableSourceVetoes))
	fmt.Fprintf(&b, "writeVisToUVFITS=%s\n", onOff(p.WriteVisToUVFITS))
	if p.Mode == Peel {
		b.WriteString("UpdateCalibratorAmplitudes=1\n")
		fmt.Fprintf(&b, "NumberOfIonoCalibrators=%d\n", p.NumIonoCalibrators)
		fmt.Fprintf(&b, "NumberOfSourcesToPeel=%d\n", p.NumSourcesToPeel)
	}
	b.WriteString("\n")

	// Fixed settings the calibration program expects regardless of mode.
	b.WriteString(`// MaxFrequency [MHz, float]: Used to set size of uv cells for gridding. Also
// affects binning of baselines by setting maximum decorrelation. Default is 300
// MHz.
MaxFrequency=200

// array_file.txt doesn't exist, but currently, the RTS will not run without it!
ArrayFile=array_file.txt
ArrayNumberOfStations=128

ArrayPositionLat=-26.70331940
ArrayPositionLong=116.67081524

calBaselineMin=20.0
calShortBaselineTaper=40.0

// ImageOversampling [float]: Sets oversampling of imaging pixel. Default value
// is 3.
ImageOversampling=3

// Store pixel beam weights along with intensity. Required if subsequently
// integrating images using integrate_image utility. Images will be 4X greater
// data volume.
StorePixelMatrices=0
`)

	return b.String()
}
