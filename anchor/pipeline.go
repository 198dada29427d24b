package anchor

import (
	"context"
	"io"
	"math/rand"

	"github.com/grailbio/anchors/encoding/fastq"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of Run.
type Result struct {
	Outcome Outcome
	Summary TestSummary
	// Records lists the clusters of significant anchors. It is empty unless
	// Outcome is Significant.
	Records []ClusterRecord
	Stats   Stats
}

// openReads opens a FASTQ file, decompressing it if its name says so.
func openReads(ctx context.Context, path string) (file.File, io.Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "open", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return in, r, nil
}

// CountReads counts the records of a (possibly compressed) FASTQ file.
func CountReads(ctx context.Context, path string) (n int, err error) {
	in, r, err := openReads(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	if n, err = fastq.CountReads(r, fastq.Loose); err != nil {
		err = errors.E(err, "count reads", path)
	}
	return
}

// eachRead calls fn on the reads of the FASTQ file at path, stopping after
// maxReads reads when maxReads > 0. It returns the number of reads passed to
// fn. A truncated last record is logged and skipped.
func eachRead(ctx context.Context, path string, fields fastq.Field, maxReads int, fn func(read *fastq.Read)) (n int, err error) {
	in, r, err := openReads(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var (
		sc   = fastq.NewScanner(r, fields|fastq.Loose)
		read fastq.Read
	)
	for (maxReads == 0 || n < maxReads) && sc.Scan(&read) {
		n++
		fn(&read)
	}
	switch err = sc.Err(); err {
	case nil:
	case fastq.ErrShort:
		log.Error.Printf("%s: truncated record after %d reads, ignored", path, n)
		err = nil
	default:
		err = errors.E(err, "read", path)
	}
	return
}

// extract streams the reads of path through the extractor and the oracle.
func extract(ctx context.Context, path string, ext *Extractor, oracle *Oracle, opts Opts) (stats Stats, err error) {
	var reads, reported int
	stats.Reads, err = eachRead(ctx, path, fastq.Seq, opts.MaxReads, func(read *fastq.Read) {
		reads++
		n := ext.ProcessRead(read.Seq)
		stats.NewAnchors += n
		reported += n
		oracle.Checkpoint(reads)
		if reads%opts.ReportInterval == 0 {
			log.Printf("%s: %d reads, %d new anchors since last report, %d anchors registered",
				path, reads, reported, oracle.reg.Len())
			reported = 0
		}
	})
	if err != nil {
		return stats, err
	}
	stats.AdmissionClosedAt = oracle.ClosedAt
	stats.Prunes = oracle.Prunes
	stats.Pruned = oracle.Removed
	stats.Anchors = oracle.reg.Len()
	log.Printf("%s: processed %d reads, %d anchors registered", path, stats.Reads, stats.Anchors)
	return stats, nil
}

// Extract streams the reads of the FASTQ file at inputPath and returns the
// registry of anchors left after the oracle. rng must be seeded from
// opts.Seed; it is shared by every randomized step of a run.
func Extract(ctx context.Context, inputPath string, opts Opts, rng *rand.Rand) (*Registry, Stats, error) {
	if inputPath == "" {
		return nil, Stats{}, errors.E(errors.Invalid, "no input file")
	}
	total, err := CountReads(ctx, inputPath)
	if err != nil {
		return nil, Stats{}, err
	}
	if opts.MaxReads > 0 && total > opts.MaxReads {
		total = opts.MaxReads
	}
	log.Printf("%s: %d reads to process", inputPath, total)
	var (
		reg    = NewRegistry()
		ext    = NewExtractor(reg, opts, rng)
		oracle = NewOracle(reg, ext, total, opts)
	)
	stats, err := extract(ctx, inputPath, ext, oracle, opts)
	if err != nil {
		return nil, stats, err
	}
	return reg, stats, nil
}

// Analyze tests the anchors of reg, clusters and assembles the significant
// ones, and writes the target dump, the cluster table and the FASTA files.
// When no anchor is significant, the table and FASTA files are written
// empty.
func Analyze(ctx context.Context, reg *Registry, outPrefix string, opts Opts, rng *rand.Rand) (Result, error) {
	var (
		res Result
		err error
	)
	res.Outcome, res.Summary, err = NewTester(opts, rng).Run(reg)
	if err != nil {
		return res, err
	}
	res.Stats.Tests = res.Summary.Tests
	res.Stats.PSignificant = res.Summary.PSignificant
	res.Stats.QSignificant = res.Summary.QSignificant
	log.Printf("testing: %s", res.Outcome)

	if err := writeFile(ctx, outPrefix+TargetsSuffix, func(w io.Writer) error { return WriteTargets(w, reg) }); err != nil {
		return res, err
	}
	if res.Outcome == Significant {
		res.Records = Consolidate(reg, opts.parallelism(), nil)
		res.Stats.Clusters = len(res.Records)
		for _, r := range res.Records {
			res.Stats.Assemblies[r.Outcome]++
		}
	}
	if err := writeResults(ctx, outPrefix, res.Records); err != nil {
		return res, err
	}
	return res, nil
}

// Run detects anchors in the FASTQ file at inputPath and writes the results
// to files named outPrefix + *Suffix. Options are validated before any input
// is read.
func Run(ctx context.Context, inputPath, outPrefix string, opts Opts) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if inputPath == "" {
		return Result{}, errors.E(errors.Invalid, "no input file")
	}
	if err := WriteConfigFile(ctx, outPrefix, opts); err != nil {
		return Result{}, err
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	reg, stats, err := Extract(ctx, inputPath, opts, rng)
	if err != nil {
		return Result{Stats: stats}, err
	}
	res, err := Analyze(ctx, reg, outPrefix, opts, rng)
	res.Stats = stats.Merge(res.Stats)
	if err == nil {
		log.Printf("stats: %v", res.Stats)
	}
	return res, err
}

// WriteConfigFile writes the options report to outPrefix + ConfigSuffix.
func WriteConfigFile(ctx context.Context, outPrefix string, opts Opts) error {
	return writeFile(ctx, outPrefix+ConfigSuffix, func(w io.Writer) error { return WriteConfig(w, opts) })
}

// writeResults writes the cluster table and the three FASTA files.
func writeResults(ctx context.Context, outPrefix string, records []ClusterRecord) error {
	var (
		assembled = make([]string, len(records))
		maxUp     = make([]string, len(records))
		maxDown   = make([]string, len(records))
	)
	for i, r := range records {
		assembled[i] = r.Consensus
		maxUp[i] = r.Max[Up].Seq
		maxDown[i] = r.Max[Down].Seq
	}
	eg := errgroup.Group{}
	eg.Go(func() error {
		return writeFile(ctx, outPrefix+TableSuffix, func(w io.Writer) error { return WriteClusterTable(w, records) })
	})
	for _, out := range []struct {
		suffix string
		seqs   []string
	}{
		{AssemblySuffix, assembled},
		{MaxUpSuffix, maxUp},
		{MaxDownSuffix, maxDown},
	} {
		out := out
		eg.Go(func() error {
			return writeFile(ctx, outPrefix+out.suffix, func(w io.Writer) error { return WriteFASTA(w, out.seqs) })
		})
	}
	return eg.Wait()
}
