package anchor

import (
	"context"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/grailbio/anchors/encoding/fasta"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
)

// Suffixes of the files written by Run, appended to the output prefix.
const (
	TargetsSuffix  = "_targets.txt.gz"
	TableSuffix    = "_anchors.txt.gz"
	AssemblySuffix = "_assemb_anchors.fasta"
	MaxUpSuffix    = "_max_anchor_up.fasta"
	MaxDownSuffix  = "_max_anchor_dn.fasta"
	ConfigSuffix   = "_config.tsv"
)

// TableHeader lists the columns of the cluster table.
var TableHeader = []string{
	"SEQ_ID", "ASSEMBLY",
	"C_UP", "N_UP", "ES_UP", "QVAL_UP", "MAX_ANCHOR_UP",
	"C_DN", "N_DN", "ES_DN", "QVAL_DN", "MAX_ANCHOR_DN",
	"A%", "C%", "G%", "T%", "ANCHORS",
}

// RecordID returns the identifier of the i'th (0-based) cluster.
func RecordID(i int) string { return "seq_" + strconv.Itoa(i+1) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteTargets writes one line per anchor, direction and representative
// flank: anchor, u|d, lookahead, flank, count.
func WriteTargets(w io.Writer, reg *Registry) error {
	tw := tsv.NewWriter(w)
	for _, a := range reg.anchors {
		for _, d := range directions {
			f := &a.Flanks[d]
			for _, e := range f.Diversity.entries {
				tw.WriteString(a.Seq)
				tw.WriteString(d.String())
				tw.WriteInt64(int64(f.Lookahead))
				tw.WriteString(e.key)
				tw.WriteInt64(int64(e.count))
				if err := tw.EndLine(); err != nil {
					return err
				}
			}
		}
	}
	return tw.Flush()
}

// WriteClusterTable writes the header and one row per cluster record.
func WriteClusterTable(w io.Writer, records []ClusterRecord) error {
	tw := tsv.NewWriter(w)
	tw.WriteString(strings.Join(TableHeader, "\t"))
	if err := tw.EndLine(); err != nil {
		return err
	}
	for i, r := range records {
		tw.WriteString(RecordID(i))
		tw.WriteString(r.Consensus)
		for _, m := range r.Max {
			tw.WriteInt64(int64(m.Growths))
			tw.WriteInt64(int64(m.Observations))
			tw.WriteString(formatFloat(m.LogFoldChange))
			tw.WriteString(formatFloat(m.QValue))
			tw.WriteString(m.Seq)
		}
		for _, pct := range r.Composition {
			tw.WriteString(strconv.FormatFloat(pct, 'f', -1, 64))
		}
		tw.WriteString(strings.Join(r.Members, ","))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteFASTA writes seqs as records named seq_1, seq_2, ...
func WriteFASTA(w io.Writer, seqs []string) error {
	fw := fasta.NewWriter(w)
	for i, s := range seqs {
		if err := fw.Write(RecordID(i), s); err != nil {
			return err
		}
	}
	return fw.Flush()
}

// WriteConfig writes the options as a two-line TSV: the field names, then
// their values.
func WriteConfig(w io.Writer, opts Opts) error {
	tw := tsv.NewWriter(w)
	v := reflect.ValueOf(opts)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tw.WriteString(t.Field(i).Name)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for i := 0; i < t.NumField(); i++ {
		switch f := v.Field(i); f.Kind() {
		case reflect.Bool:
			tw.WriteString(strconv.FormatBool(f.Bool()))
		case reflect.Int, reflect.Int64:
			tw.WriteInt64(f.Int())
		case reflect.Float64:
			tw.WriteString(formatFloat(f.Float()))
		default:
			return errors.E(errors.Invalid, "unsupported option type", f.Kind().String())
		}
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	return tw.Flush()
}

// writeFile creates path and calls fn with a writer to it. The contents are
// gzip-compressed when path ends with ".gz".
func writeFile(ctx context.Context, path string, fn func(w io.Writer) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	if !strings.HasSuffix(path, ".gz") {
		if err = fn(out.Writer(ctx)); err != nil {
			err = errors.E(err, "write", path)
		}
		return
	}
	gz := gzip.NewWriter(out.Writer(ctx))
	once := errors.Once{}
	once.Set(fn(gz))
	once.Set(gz.Close())
	if err = once.Err(); err != nil {
		err = errors.E(err, "write", path)
	}
	return
}
