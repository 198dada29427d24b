package anchor

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/anchors/encoding/fasta"
	"github.com/grailbio/anchors/encoding/fastq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// readFrom opens a (possibly compressed) file and calls fn with its contents.
func readFrom(ctx context.Context, path string, fn func(r io.Reader) error) (err error) {
	in, r, err := openReads(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	return fn(r)
}

// ReadAnchorListFile reads the anchor list at path.
func ReadAnchorListFile(ctx context.Context, path string) (anchors []string, err error) {
	err = readFrom(ctx, path, func(r io.Reader) (err error) {
		anchors, err = ReadAnchorList(r)
		return err
	})
	if err != nil {
		return nil, errors.E(err, path)
	}
	return anchors, nil
}

// ExtractSignificant reads the cluster table at tablePath and writes the
// significant max anchors of each direction to outPrefix +
// SignificantSuffix(d). The lists are returned indexed by direction.
func ExtractSignificant(ctx context.Context, tablePath, outPrefix string, qThreshold float64) ([2][]string, error) {
	var lists [2][]string
	for _, d := range directions {
		d := d
		err := readFrom(ctx, tablePath, func(r io.Reader) (err error) {
			lists[d], err = SignificantAnchors(r, d, qThreshold)
			return err
		})
		if err != nil {
			return lists, errors.E(err, tablePath)
		}
		if err := writeFile(ctx, outPrefix+SignificantSuffix(d), func(w io.Writer) error { return WriteAnchorList(w, lists[d]) }); err != nil {
			return lists, err
		}
		log.Printf("%s: %d significant %s anchors", tablePath, len(lists[d]), dirLabel(d))
	}
	return lists, nil
}

// MergeSignificant merges the anchor lists at paths, keeping at most limit
// anchors when limit > 0, and writes the result to outPrefix +
// MergedSignificantSuffix.
func MergeSignificant(ctx context.Context, paths []string, limit int, outPrefix string) ([]string, error) {
	lists := make([][]string, len(paths))
	for i, path := range paths {
		var err error
		if lists[i], err = ReadAnchorListFile(ctx, path); err != nil {
			return nil, err
		}
	}
	merged := MergeSignificantAnchors(lists, limit)
	if err := writeFile(ctx, outPrefix+MergedSignificantSuffix, func(w io.Writer) error { return WriteAnchorList(w, merged) }); err != nil {
		return nil, err
	}
	return merged, nil
}

// CountAdjacent streams the reads of inputPath and counts the adjacent kmers
// of anchors. It writes the counts to outPrefix + AdjacentCountsSuffix and the
// reads containing at least one counted anchor to outPrefix +
// AdjacentReadsSuffix, as FASTA records named "<read ID> <anchor>_<anchor>...".
// opts supplies AnchorLength, for the derived distance and length, and
// MaxReads.
func CountAdjacent(ctx context.Context, inputPath string, anchors []string, outPrefix string, aopts AdjacentOpts, opts Opts) (counts []AdjacentCount, err error) {
	if err := aopts.Validate(); err != nil {
		return nil, err
	}
	if inputPath == "" {
		return nil, errors.E(errors.Invalid, "no input file")
	}
	readsPath := outPrefix + AdjacentReadsSuffix
	out, err := file.Create(ctx, readsPath)
	if err != nil {
		return nil, errors.E(err, "create", readsPath)
	}
	defer file.CloseAndReport(ctx, out, &err)
	var (
		fw      = fasta.NewWriter(out.Writer(ctx))
		counter *AdjacentCounter
		matched int
	)
	n, err := eachRead(ctx, inputPath, fastq.ID|fastq.Seq, opts.MaxReads, func(read *fastq.Read) {
		if counter == nil {
			aopts = aopts.resolve(opts.AnchorLength, len(read.Seq))
			log.Printf("%s: adjacent kmers of length %d at distance %d", inputPath, aopts.Length, aopts.Distance)
			counter = NewAdjacentCounter(anchors, aopts.Distance, aopts.Length)
		}
		found := counter.Observe(read.Seq)
		if len(found) == 0 {
			return
		}
		matched++
		// Write errors are sticky and reported by Flush.
		_ = fw.Write(readName(read.ID)+" "+strings.Join(found, "_"), read.Seq)
	})
	if err != nil {
		return nil, err
	}
	if err := fw.Flush(); err != nil {
		return nil, errors.E(err, "write", readsPath)
	}
	if counter != nil {
		counts = counter.Counts()
	}
	log.Printf("%s: %d of %d reads contain an anchor, %d anchor/adjacent pairs", inputPath, matched, n, len(counts))
	err = writeFile(ctx, outPrefix+AdjacentCountsSuffix, func(w io.Writer) error {
		return WriteAdjacentCounts(w, aopts.SampleID, counts)
	})
	return counts, err
}

// readName strips the leading '@' and any description from a FASTQ ID line.
func readName(id string) string {
	if len(id) > 0 && id[0] == '@' {
		id = id[1:]
	}
	for i := 0; i < len(id); i++ {
		if id[i] == ' ' || id[i] == '\t' {
			return id[:i]
		}
	}
	return id
}

// MergeAdjacent joins the count tables at paths, written by CountAdjacent,
// into outPrefix + MergedCountsSuffix.
func MergeAdjacent(ctx context.Context, paths []string, outPrefix string) error {
	var (
		ids    = make([]string, len(paths))
		tables = make([][]AdjacentCount, len(paths))
	)
	for i, path := range paths {
		err := readFrom(ctx, path, func(r io.Reader) (err error) {
			ids[i], tables[i], err = ReadAdjacentCounts(r)
			return err
		})
		if err != nil {
			return errors.E(err, path)
		}
	}
	return writeFile(ctx, outPrefix+MergedCountsSuffix, func(w io.Writer) error {
		return WriteMergedAdjacentCounts(w, ids, tables)
	})
}

// CollectNextBases streams the reads of inputPath and writes the next-base
// consensus of anchors to outPrefix + NextBaseFASTASuffix and outPrefix +
// NextBaseTableSuffix. lookLength <= 0 uses opts.AnchorLength.
func CollectNextBases(ctx context.Context, inputPath string, anchors []string, outPrefix string, lookLength int, opts Opts) ([]NextBaseConsensus, error) {
	if inputPath == "" {
		return nil, errors.E(errors.Invalid, "no input file")
	}
	if lookLength <= 0 {
		lookLength = opts.AnchorLength
	}
	c := NewNextBaseCollector(anchors, lookLength)
	n, err := eachRead(ctx, inputPath, fastq.Seq, opts.MaxReads, func(read *fastq.Read) {
		c.Observe(read.Seq)
	})
	if err != nil {
		return nil, err
	}
	cons := c.Consensus()
	log.Printf("%s: %d reads, consensus for %d of %d anchors", inputPath, n, len(cons), len(anchors))
	if err := writeFile(ctx, outPrefix+NextBaseFASTASuffix, func(w io.Writer) error { return WriteNextBaseFASTA(w, cons) }); err != nil {
		return nil, err
	}
	if err := writeFile(ctx, outPrefix+NextBaseTableSuffix, func(w io.Writer) error { return WriteNextBaseTable(w, cons) }); err != nil {
		return nil, err
	}
	return cons, nil
}
