package anchor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// SignificantSuffix returns the suffix of the file listing the significant
// direction-d max anchors.
func SignificantSuffix(d Direction) string { return "_signif_anchors_" + dirLabel(d) + ".txt" }

// MergedSignificantSuffix is the suffix of the merged anchor list.
const MergedSignificantSuffix = "_merged_signif_anchors.txt"

// SignificantAnchors reads a cluster table, as written by WriteClusterTable
// or JoinAnnotations, and returns the direction-d max anchor of every cluster
// whose direction-d q-value is strictly below qThreshold, in table order.
// Columns are located by name so that annotated tables are accepted too.
func SignificantAnchors(in io.Reader, d Direction, qThreshold float64) ([]string, error) {
	qCol, anchorCol := "QVAL_UP", "MAX_ANCHOR_UP"
	if d == Down {
		qCol, anchorCol = "QVAL_DN", "MAX_ANCHOR_DN"
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	var (
		anchors    []string
		qi, ai     = -1, -1
		lineNumber int
	)
	for sc.Scan() {
		lineNumber++
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if qi < 0 {
			for i, f := range fields {
				switch f {
				case qCol:
					qi = i
				case anchorCol:
					ai = i
				}
			}
			if qi < 0 || ai < 0 {
				return nil, errors.E(errors.Invalid, "cluster table has no", qCol, "or", anchorCol, "column")
			}
			continue
		}
		if len(fields) <= qi || len(fields) <= ai {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("cluster table line %d: %d columns", lineNumber, len(fields)))
		}
		q, err := strconv.ParseFloat(fields[qi], 64)
		if err != nil {
			return nil, errors.E(errors.Invalid, err, fmt.Sprintf("cluster table line %d", lineNumber))
		}
		if q < qThreshold {
			anchors = append(anchors, fields[ai])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read cluster table")
	}
	if qi < 0 {
		return nil, errors.E(errors.Invalid, "empty cluster table")
	}
	return anchors, nil
}

// ReadAnchorList reads one anchor per line. Blank lines are skipped.
func ReadAnchorList(in io.Reader) ([]string, error) {
	sc := bufio.NewScanner(in)
	var anchors []string
	for sc.Scan() {
		if a := strings.TrimSpace(sc.Text()); a != "" {
			anchors = append(anchors, a)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "read anchor list")
	}
	return anchors, nil
}

// WriteAnchorList writes one anchor per line.
func WriteAnchorList(w io.Writer, anchors []string) error {
	tw := tsv.NewWriter(w)
	for _, a := range anchors {
		tw.WriteString(a)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// MergeSignificantAnchors returns the union of the anchor lists of several
// samples, each anchor once, in order of first appearance. When limit > 0 the
// result is cut to its first limit anchors.
func MergeSignificantAnchors(lists [][]string, limit int) []string {
	var (
		merged []string
		seen   = map[string]bool{}
	)
	for _, list := range lists {
		for _, a := range list {
			if seen[a] {
				continue
			}
			seen[a] = true
			merged = append(merged, a)
		}
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
