package anchor

import (
	"fmt"
	"runtime"

	"github.com/grailbio/base/errors"
)

// Opts configures a run. The zero value is not usable; start from
// DefaultOpts.
type Opts struct {
	// AnchorLength is the length of anchors. Flanks have the same length.
	AnchorLength int `toml:"anchor_length"`
	// LmerLength is the length of the substrings used to compare flanks.
	LmerLength int `toml:"lmer_length"`
	// Lookahead is the fixed distance between an anchor and its flanks. It is
	// ignored when RandomLookahead is set.
	Lookahead int `toml:"lookahead"`
	// RandomLookahead draws the lookahead of each anchor and direction
	// uniformly from [1, AnchorLength-1].
	RandomLookahead bool `toml:"random_lookahead"`
	// MinSampleSize is the number of flank observations an anchor direction
	// must exceed to be tested. It also drives the oracle.
	MinSampleSize int `toml:"min_sample_size"`
	// MaxSampleSize caps the flank observations per anchor direction.
	MaxSampleSize int `toml:"max_sample_size"`
	// JaccardThreshold is the similarity at or above which a flank merges into
	// an existing representative.
	JaccardThreshold float64 `toml:"jaccard_threshold"`
	// QThreshold is the significance cutoff applied to both p- and q-values.
	QThreshold float64 `toml:"q_threshold"`
	// NullBatchSize is the number of anchor draws used to fit the null model.
	NullBatchSize int `toml:"null_batch_size"`
	// MaxReads stops the pass after this many reads. 0 means no limit.
	MaxReads int `toml:"max_reads"`
	// Seed seeds the single random source of a run.
	Seed int64 `toml:"seed"`
	// SketchSize selects the min-sketch similarity estimate with this many
	// hashes per flank. 0 computes the exact Jaccard similarity.
	SketchSize int `toml:"sketch_size"`
	// AdmissionCheckInterval is the read cadence at which the oracle
	// considers closing admission of new anchors.
	AdmissionCheckInterval int `toml:"admission_check_interval"`
	// PruneInterval is the read cadence of prune passes once admission is
	// closed.
	PruneInterval int `toml:"prune_interval"`
	// ReportInterval is the read cadence of progress messages.
	ReportInterval int `toml:"report_interval"`
	// ExactOracle uses the exact binomial tail instead of its normal
	// approximation.
	ExactOracle bool `toml:"exact_oracle"`
	// Parallelism bounds the edit-distance worker pool.
	Parallelism int `toml:"parallelism"`
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	AnchorLength:           31,
	LmerLength:             7,
	Lookahead:              0,
	RandomLookahead:        false,
	MinSampleSize:          20,
	MaxSampleSize:          50,
	JaccardThreshold:       0.05,
	QThreshold:             0.1,
	NullBatchSize:          10000,
	MaxReads:               0,
	Seed:                   1,
	SketchSize:             0,
	AdmissionCheckInterval: 100000,
	PruneInterval:          2500000,
	ReportInterval:         10000,
	ExactOracle:            false,
	Parallelism:            runtime.NumCPU(),
}

// Validate checks the options for consistency. It must be called before any
// input is read.
func (o Opts) Validate() error {
	switch {
	case o.AnchorLength < 2:
		return errors.E(errors.Invalid, fmt.Sprintf("anchor length must be >= 2, got %v", o.AnchorLength))
	case o.LmerLength < 1 || o.LmerLength > o.AnchorLength:
		return errors.E(errors.Invalid, fmt.Sprintf("l-mer length must be in [1, anchor length], got %v", o.LmerLength))
	case o.Lookahead < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("lookahead must be >= 0, got %v", o.Lookahead))
	case o.MinSampleSize < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("minimum sample size must be >= 0, got %v", o.MinSampleSize))
	case o.MaxSampleSize < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("maximum sample size must be >= 1, got %v", o.MaxSampleSize))
	case o.MinSampleSize > o.MaxSampleSize:
		return errors.E(errors.Invalid, fmt.Sprintf("minimum sample size %d exceeds maximum sample size %d",
			o.MinSampleSize, o.MaxSampleSize))
	case o.JaccardThreshold <= 0 || o.JaccardThreshold > 1:
		return errors.E(errors.Invalid, fmt.Sprintf("jaccard threshold must be in (0, 1], got %v", o.JaccardThreshold))
	case o.QThreshold < 0 || o.QThreshold > 1:
		return errors.E(errors.Invalid, fmt.Sprintf("q-value threshold must be in [0, 1], got %v", o.QThreshold))
	case o.NullBatchSize < 1:
		return errors.E(errors.Invalid, fmt.Sprintf("null batch size must be >= 1, got %v", o.NullBatchSize))
	case o.MaxReads < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("max reads must be >= 0, got %v", o.MaxReads))
	case o.SketchSize < 0:
		return errors.E(errors.Invalid, fmt.Sprintf("sketch size must be >= 0, got %v", o.SketchSize))
	case o.AdmissionCheckInterval < 1 || o.PruneInterval < 1 || o.ReportInterval < 1:
		return errors.E(errors.Invalid, "check, prune and report intervals must be >= 1")
	}
	return nil
}

func (o Opts) parallelism() int {
	if o.Parallelism < 1 {
		return 1
	}
	return o.Parallelism
}
