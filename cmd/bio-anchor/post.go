package main

import (
	"context"
	"strings"

	"github.com/grailbio/anchors/anchor"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

const (
	modeDetect           = "detect"
	modeAnnotate         = "annotate"
	modeSignificant      = "significant"
	modeMergeSignificant = "merge-significant"
	modeAdjacent         = "adjacent"
	modeMergeAdjacent    = "merge-adjacent"
	modeNextBase         = "nextbase"
)

func splitList(s string) []string {
	var list []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			list = append(list, f)
		}
	}
	return list
}

// postProcess runs one of the modes that work on the outputs of detect.
func postProcess(ctx context.Context, cf anchorFlags, opts anchor.Opts) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	switch cf.mode {
	case modeSignificant:
		if cf.tablePath == "" {
			return errors.E(errors.Invalid, "-table is required")
		}
		_, err := anchor.ExtractSignificant(ctx, cf.tablePath, cf.outputPrefix, opts.QThreshold)
		return err
	case modeMergeSignificant:
		inputs := splitList(cf.mergeInputs)
		if len(inputs) == 0 {
			return errors.E(errors.Invalid, "-merge-inputs is required")
		}
		merged, err := anchor.MergeSignificant(ctx, inputs, cf.maxAnchors, cf.outputPrefix)
		if err == nil {
			log.Printf("%s: %d anchors merged from %d lists", cf.outputPrefix, len(merged), len(inputs))
		}
		return err
	case modeAdjacent, modeNextBase:
		if cf.anchorsPath == "" {
			return errors.E(errors.Invalid, "-anchors is required")
		}
		anchors, err := anchor.ReadAnchorListFile(ctx, cf.anchorsPath)
		if err != nil {
			return err
		}
		if cf.mode == modeAdjacent {
			_, err = anchor.CountAdjacent(ctx, cf.input, anchors, cf.outputPrefix, cf.adjacent, opts)
		} else {
			_, err = anchor.CollectNextBases(ctx, cf.input, anchors, cf.outputPrefix, cf.lookLength, opts)
		}
		return err
	case modeMergeAdjacent:
		inputs := splitList(cf.mergeInputs)
		if len(inputs) == 0 {
			return errors.E(errors.Invalid, "-merge-inputs is required")
		}
		return anchor.MergeAdjacent(ctx, inputs, cf.outputPrefix)
	}
	return errors.E(errors.Invalid, "unknown mode", cf.mode)
}
