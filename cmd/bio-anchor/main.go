package main

// bio-anchor finds anchors: short sequences whose adjacent sequence is
// unusually diverse across the reads of a FASTQ file.
//
// Example 1: detect anchors.
//
//    bio-anchor -input reads.fastq.gz -output /tmp/sample
//
// Example 2: detect anchors and keep the registry, then rerun only the
// testing stage with a stricter threshold.
//
//    bio-anchor -input reads.fastq.gz -output /tmp/sample -registry-output /tmp/sample.rio
//    bio-anchor -registry-input /tmp/sample.rio -output /tmp/strict -q-threshold 0.01
//
// Example 3: join similarity-search hits of the max-anchor FASTA files back
// into the cluster table.
//
//    bio-anchor -mode annotate -table /tmp/sample_anchors.txt.gz \
//      -hits nt:/tmp/nt_up.tsv:/tmp/nt_dn.tsv -annotated-output /tmp/sample_annotated.txt.gz
//
// Example 4: list the significant max anchors of two samples, merge them,
// count their adjacent kmers in each sample and merge the counts.
//
//    bio-anchor -mode significant -table /tmp/a_anchors.txt.gz -output /tmp/a
//    bio-anchor -mode significant -table /tmp/b_anchors.txt.gz -output /tmp/b
//    bio-anchor -mode merge-significant -merge-inputs /tmp/a_signif_anchors_up.txt,/tmp/b_signif_anchors_up.txt -output /tmp/ab
//    bio-anchor -mode adjacent -input a.fastq.gz -anchors /tmp/ab_merged_signif_anchors.txt -sample-id a -output /tmp/a
//    bio-anchor -mode adjacent -input b.fastq.gz -anchors /tmp/ab_merged_signif_anchors.txt -sample-id b -output /tmp/b
//    bio-anchor -mode merge-adjacent -merge-inputs /tmp/a_adj_kmer_counts.tsv,/tmp/b_adj_kmer_counts.tsv -output /tmp/ab

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/grailbio/anchors/anchor"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

type memStats struct {
	mu sync.Mutex
	// Below are copies of runtime.MemStats
	alloc      uint64
	totalAlloc uint64
	sys        uint64
	heapSys    uint64
}

func (m *memStats) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("Alloc: %v TotalAlloc: %v, Sys: %v, HeapSys: %v",
		m.alloc, m.totalAlloc, m.sys, m.heapSys)
}

func (m *memStats) update() {
	var s runtime.MemStats
	runtime.ReadMemStats(&s)
	m.mu.Lock()
	if m.alloc < s.Alloc {
		m.alloc = s.Alloc
	}
	if m.totalAlloc < s.TotalAlloc {
		m.totalAlloc = s.TotalAlloc
	}
	if m.sys < s.Sys {
		m.sys = s.Sys
	}
	if m.heapSys < s.HeapSys {
		m.heapSys = s.HeapSys
	}
	m.mu.Unlock()
}

// Collection of options set via cmdline flags
type anchorFlags struct {
	input          string
	outputPrefix   string
	configPath     string
	registryInput  string
	registryOutput string

	mode            string
	tablePath       string
	hits            string
	annotatedOutput string

	anchorsPath string
	mergeInputs string
	maxAnchors  int
	lookLength  int
	adjacent    anchor.AdjacentOpts
}

// registerFlags binds the command line flags to cf and opts.
func registerFlags(fs *flag.FlagSet, cf *anchorFlags, opts *anchor.Opts) {
	d := anchor.DefaultOpts
	fs.StringVar(&cf.input, "input", "", "FASTQ file to scan. It may be compressed.")
	fs.StringVar(&cf.outputPrefix, "output", "./anchors", "Prefix of the output files.")
	fs.StringVar(&cf.configPath, "config", "", `TOML file with option values. Flags set on the
command line take precedence over the file.`)
	fs.StringVar(&cf.registryOutput, "registry-output", "", "If set, the registry is saved to this recordio file after the streaming pass.")
	fs.StringVar(&cf.registryInput, "registry-input", "", `If set, the registry is read from this file, created by
-registry-output, and only the testing and assembly stages run.`)

	fs.StringVar(&cf.mode, "mode", modeDetect, `One of:
  detect: find anchors in -input
  annotate: join similarity-search hits into -table
  significant: list the significant max anchors of -table
  merge-significant: merge the anchor lists in -merge-inputs
  adjacent: count the adjacent kmers of the -anchors in -input
  merge-adjacent: merge the adjacent kmer counts in -merge-inputs
  nextbase: build the consensus of the bases following the -anchors in -input`)
	fs.StringVar(&cf.tablePath, "table", "", "Cluster table to annotate or to list significant anchors from.")
	fs.StringVar(&cf.hits, "hits", "", `Comma-separated list of db:up_hits:down_hits. Each hit file is a TSV with
the header "Query Hit Evalue", from a search of the max-anchor FASTA files.`)
	fs.StringVar(&cf.annotatedOutput, "annotated-output", "./anchors_annotated.txt.gz", "Annotated cluster table.")
	fs.StringVar(&cf.anchorsPath, "anchors", "", "File listing one anchor per line.")
	fs.StringVar(&cf.mergeInputs, "merge-inputs", "", "Comma-separated list of files to merge.")
	fs.IntVar(&cf.maxAnchors, "max-anchors", 0, "Keep at most this many merged anchors. 0 keeps all.")
	fs.IntVar(&cf.lookLength, "look-length", 0, "Bases after each anchor used by nextbase. 0 uses -anchor-length.")
	ad := anchor.DefaultAdjacentOpts
	fs.IntVar(&cf.adjacent.Distance, "adj-dist", ad.Distance, `Gap between an anchor and its adjacent kmer. A negative value uses
(read length - 2*anchor length)/2 with the length of the first read.`)
	fs.IntVar(&cf.adjacent.Length, "adj-len", ad.Length, "Length of adjacent kmers. 0 uses -anchor-length.")
	fs.StringVar(&cf.adjacent.SampleID, "sample-id", ad.SampleID, "Name of the count column written by adjacent.")

	fs.IntVar(&opts.AnchorLength, "anchor-length", d.AnchorLength, "Length of anchors and flanks")
	fs.IntVar(&opts.LmerLength, "lmer-length", d.LmerLength, "Length of the l-mers used to compare flanks")
	fs.IntVar(&opts.Lookahead, "lookahead", d.Lookahead, "Distance between an anchor and its flanks")
	fs.BoolVar(&opts.RandomLookahead, "random-lookahead", d.RandomLookahead, "Draw the lookahead of each anchor at random")
	fs.IntVar(&opts.MinSampleSize, "min-sample-size", d.MinSampleSize, "Flank observations an anchor must exceed to be tested")
	fs.IntVar(&opts.MaxSampleSize, "max-sample-size", d.MaxSampleSize, "Maximum flank observations per anchor direction")
	fs.Float64Var(&opts.JaccardThreshold, "jaccard-threshold", d.JaccardThreshold, "Similarity at which a flank merges into a representative")
	fs.Float64Var(&opts.QThreshold, "q-threshold", d.QThreshold, "Significance cutoff for p- and q-values")
	fs.IntVar(&opts.NullBatchSize, "null-batch-size", d.NullBatchSize, "Anchor draws used to fit the null model")
	fs.IntVar(&opts.MaxReads, "max-reads", d.MaxReads, "Stop after this many reads. 0 reads the whole input.")
	fs.Int64Var(&opts.Seed, "seed", d.Seed, "Random seed")
	fs.IntVar(&opts.SketchSize, "sketch-size", d.SketchSize, "Compare flanks by min-sketches of this size. 0 computes exact similarities.")
	fs.IntVar(&opts.AdmissionCheckInterval, "admission-check-interval", d.AdmissionCheckInterval, "Reads between checks for closing admission")
	fs.IntVar(&opts.PruneInterval, "prune-interval", d.PruneInterval, "Reads between prune passes once admission is closed")
	fs.IntVar(&opts.ReportInterval, "report-interval", d.ReportInterval, "Reads between progress messages")
	fs.BoolVar(&opts.ExactOracle, "exact-oracle", d.ExactOracle, "Use the exact binomial tail in the memory oracle")
	fs.IntVar(&opts.Parallelism, "parallelism", d.Parallelism, "Workers computing edit distances")
}

func usage() {
	fmt.Fprintln(os.Stderr, `
bio-anchor scans a FASTQ file for anchors, i.e., sequences followed or preceded
by an unusually diverse set of sequences, and writes them clustered and
assembled, together with the FASTA files to annotate them.

Examples:

1. Detect anchors

    bio-anchor -input reads.fastq.gz -output /tmp/sample

2. Join hits of the max-anchor FASTA files against a database

    bio-anchor -mode annotate -table /tmp/sample_anchors.txt.gz -hits nt:up.tsv:dn.tsv

3. Count the kmers adjacent to significant anchors in a second pass

    bio-anchor -mode significant -table /tmp/sample_anchors.txt.gz -output /tmp/sample
    bio-anchor -mode adjacent -input reads.fastq.gz -anchors /tmp/sample_signif_anchors_up.txt -output /tmp/sample

Flags:`)
	flag.PrintDefaults()
}

// detect runs the detection pipeline, optionally saving or reusing the
// registry.
func detect(ctx context.Context, cf anchorFlags, opts anchor.Opts) (anchor.Result, error) {
	if cf.input != "" && cf.registryInput != "" {
		return anchor.Result{}, errors.E(errors.Invalid, "-input and -registry-input are mutually exclusive")
	}
	if cf.registryInput == "" && cf.registryOutput == "" {
		return anchor.Run(ctx, cf.input, cf.outputPrefix, opts)
	}
	var (
		reg   *anchor.Registry
		stats anchor.Stats
		rng   *rand.Rand
		err   error
	)
	if cf.registryInput != "" {
		var snapOpts anchor.Opts
		if reg, snapOpts, stats, err = anchor.ReadSnapshot(ctx, cf.registryInput); err != nil {
			return anchor.Result{}, err
		}
		// Options that shaped the registry cannot change.
		opts.AnchorLength = snapOpts.AnchorLength
		opts.LmerLength = snapOpts.LmerLength
		opts.MaxSampleSize = snapOpts.MaxSampleSize
		if err = opts.Validate(); err != nil {
			return anchor.Result{}, err
		}
		log.Printf("%s: %d anchors loaded", cf.registryInput, reg.Len())
		rng = rand.New(rand.NewSource(opts.Seed))
	} else {
		if err = opts.Validate(); err != nil {
			return anchor.Result{}, err
		}
		rng = rand.New(rand.NewSource(opts.Seed))
		if reg, stats, err = anchor.Extract(ctx, cf.input, opts, rng); err != nil {
			return anchor.Result{}, err
		}
		if err = anchor.WriteSnapshot(ctx, cf.registryOutput, reg, opts, stats); err != nil {
			return anchor.Result{}, err
		}
	}
	if err = anchor.WriteConfigFile(ctx, cf.outputPrefix, opts); err != nil {
		return anchor.Result{}, err
	}
	res, err := anchor.Analyze(ctx, reg, cf.outputPrefix, opts, rng)
	res.Stats = stats.Merge(res.Stats)
	return res, err
}

func main() {
	flag.Usage = usage
	opts := anchor.DefaultOpts
	cf := anchorFlags{}
	registerFlags(flag.CommandLine, &cf, &opts)

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()
	var memStats memStats
	go func() {
		for {
			time.Sleep(500 * time.Millisecond)
			memStats.update()
		}
	}()

	if cf.configPath != "" {
		if err := loadConfig(ctx, cf.configPath, flag.CommandLine, &opts); err != nil {
			log.Fatal(err)
		}
	}
	switch cf.mode {
	case modeDetect:
		if cf.input == "" && cf.registryInput == "" {
			log.Fatal(errors.E(errors.Invalid, "-input or -registry-input is required"))
		}
		res, err := detect(ctx, cf, opts)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%s: %s, %d clusters", cf.outputPrefix, res.Outcome, len(res.Records))
	case modeAnnotate:
		if err := annotate(ctx, cf.tablePath, cf.hits, cf.annotatedOutput); err != nil {
			log.Fatal(err)
		}
	default:
		if err := postProcess(ctx, cf, opts); err != nil {
			log.Fatal(err)
		}
	}
	memStats.update()
	log.Printf("MemStats: %s", memStats.String())
	log.Printf("All done")
}
