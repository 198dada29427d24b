package anchor

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

const hitTableHeader = "Query\tHit\tEvalue"

// Hit is the best similarity-search hit of one query.
type Hit struct {
	Query  string
	Hit    string
	Evalue float64
}

// ReadBestHits reads a tab-separated hit table with the header
// "Query Hit Evalue" and returns, per query, the hit with the smallest
// evalue. Ties keep the first hit.
func ReadBestHits(in io.Reader) (map[string]Hit, error) {
	br := bufio.NewReader(in)
	header, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.E(err, "read hit table")
	}
	if got := strings.TrimRight(header, "\r\n"); got != hitTableHeader {
		return nil, errors.E(errors.Invalid, "hit table header", strconv.Quote(got), "want", strconv.Quote(hitTableHeader))
	}
	r := tsv.NewReader(br)
	best := map[string]Hit{}
	for {
		var row Hit
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "read hit table")
		}
		if b, ok := best[row.Query]; !ok || row.Evalue < b.Evalue {
			best[row.Query] = row
		}
	}
	return best, nil
}

// HitSet holds the best hits of the max-anchor sequences of both directions
// against one database.
type HitSet struct {
	// DB names the database in the appended column headers.
	DB string
	// Hits[d] maps record IDs of the direction-d max-anchor FASTA to hits.
	Hits [2]map[string]Hit
}

// JoinAnnotations copies the cluster table from in to out, appending the
// evalue and hit of every set for the up direction, then for the down
// direction. Records without a hit get "NA" in both columns.
func JoinAnnotations(in io.Reader, out io.Writer, sets []HitSet) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	tw := tsv.NewWriter(out)
	header := true
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		tw.WriteString(line)
		id := line
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			id = line[:i]
		}
		for _, d := range directions {
			for _, set := range sets {
				if header {
					tw.WriteString("blast_evalue_" + dirLabel(d) + "_" + set.DB)
					tw.WriteString("blast_hit_" + dirLabel(d) + "_" + set.DB)
					continue
				}
				if h, ok := set.Hits[d][id]; ok {
					tw.WriteString(formatFloat(h.Evalue))
					tw.WriteString(h.Hit)
				} else {
					tw.WriteString("NA")
					tw.WriteString("NA")
				}
			}
		}
		header = false
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.E(err, "read cluster table")
	}
	return tw.Flush()
}

func dirLabel(d Direction) string {
	if d == Up {
		return "up"
	}
	return "dn"
}
