package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cwsl/uvconvert/ms"
)

// debugMode enables progress logging; set once from the -debug flag in main.
var debugMode bool

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [flags] <command> [command flags]

Commands:
  convert      Convert a visibility dump to calibration-ready containers
  unphase      Rewrite an existing container's visibilities as non-phase-tracked
  occupancy    Print per-channel flag occupancy of flag archives
  reflag       Rewrite flag archives with fully-flagged channel directives
  rts-in-file  Generate a calibration in file

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to yaml configuration file")
	flag.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	var err error
	switch cmd {
	case "convert":
		err = convertCommand(cfg, args)
	case "unphase":
		err = unphaseCommand(args)
	case "occupancy":
		err = occupancyCommand(args)
	case "reflag":
		err = reflagCommand(cfg, args)
	case "rts-in-file":
		err = rtsInFileCommand(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func convertCommand(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	output := fs.String("output", cfg.Convert.Output, "Output container stem (or whole path with -one-to-one)")
	oneToOne := fs.Bool("one-to-one", cfg.Convert.OneToOne, "Write a single container instead of one per coarse band")
	undoTracking := fs.Bool("undo-phase-tracking", cfg.Convert.UndoPhaseTracking, "Convert phase-tracked visibilities to non-phase-tracked")
	resetWeights := fs.Bool("reset-weights", cfg.Convert.ResetWeights, "Set all weights to 1 instead of carrying them over")
	object := fs.String("object", cfg.Convert.ObjectName, "OBJECT header value")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("convert needs exactly one visibility dump directory")
	}
	dataset, err := ms.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg.Convert.Output = *output
	cfg.Convert.OneToOne = *oneToOne
	cfg.Convert.UndoPhaseTracking = *undoTracking
	cfg.Convert.ResetWeights = *resetWeights
	cfg.Convert.ObjectName = *object
	return runConvert(dataset, cfg)
}
