package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cwsl/uvconvert/mwaf"
)

// archivePattern matches per-coarse-band flag archives named by a 10-digit
// observation id.
const archivePattern = "??????????_??.mwaf"

// findArchives globs a directory for flag archives, plain or zstd-compressed.
func findArchives(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, archivePattern))
	if err != nil {
		return nil, err
	}
	compressed, err := filepath.Glob(filepath.Join(dir, archivePattern+".zst"))
	if err != nil {
		return nil, err
	}
	return append(files, compressed...), nil
}

// occupancyCommand prints per-channel occupancy for each named archive, or
// for every archive in the current directory when none are named.
func occupancyCommand(args []string) error {
	fs := flag.NewFlagSet("occupancy", flag.ExitOnError)
	fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		var err error
		paths, err = findArchives(".")
		if err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no flag archives found matching %s", archivePattern)
	}

	for _, path := range paths {
		archive, err := mwaf.Load(path)
		if err != nil {
			return err
		}
		occ := mwaf.NewOccupancy(archive)
		fmt.Printf("%s (%d samples per channel):\n", path, occ.TotalSamples)
		for i, frac := range occ.FlagFractionPerChannel {
			fmt.Printf("  channel %3d: %8d flags (%.4f)\n", i, occ.FlagCountsPerChannel[i], frac)
		}
	}
	return nil
}

// reflagCommand writes an RTS_-prefixed copy of every matching archive with
// high-occupancy channels marked for total flagging.
func reflagCommand(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("reflag", flag.ExitOnError)
	threshold := fs.Float64("threshold", cfg.Reflag.Threshold, "Occupancy fraction above which a whole channel is flagged; in (0, 1]")
	dir := fs.String("dir", cfg.Reflag.Dir, "Directory to search for flag archives")
	fs.Parse(args)

	if *threshold <= 0 {
		return fmt.Errorf("not running with a threshold of %v", *threshold)
	}
	if *threshold > 1 {
		return fmt.Errorf("the threshold cannot be bigger than 1")
	}

	archives, err := findArchives(*dir)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return fmt.Errorf("no flag archives found matching %s", filepath.Join(*dir, archivePattern))
	}

	for _, path := range archives {
		archive, err := mwaf.Load(path)
		if err != nil {
			return err
		}
		occ := mwaf.NewOccupancy(archive)
		// Reflagged copies are always written uncompressed.
		dst := mwaf.ReflaggedName(strings.TrimSuffix(path, ".zst"))
		directive, err := occ.Reflag(dst, *threshold)
		if err != nil {
			return err
		}
		log.Printf("%s: %d channel(s) above %.2f -> %s", path, len(directive), *threshold, dst)
	}
	return nil
}
