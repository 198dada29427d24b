package main

import (
	"flag"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/anchors/anchor"
	"github.com/grailbio/anchors/encoding/fastq"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}

func TestParseHitSpecs(t *testing.T) {
	specs, err := parseHitSpecs("nt:a.tsv:b.tsv,vec:c.tsv:d.tsv")
	assert.NoError(t, err)
	expect.EQ(t, specs, []hitSpec{
		{"nt", [2]string{"a.tsv", "b.tsv"}},
		{"vec", [2]string{"c.tsv", "d.tsv"}},
	})
	_, err = parseHitSpecs("nt:a.tsv")
	expect.True(t, errors.Is(errors.Invalid, err))
	_, err = parseHitSpecs("")
	expect.True(t, errors.Is(errors.Invalid, err))
}

func TestLoadConfig(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := filepath.Join(dir, "anchor.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
anchor_length = 27
q_threshold = 0.05
max_sample_size = 40
`), 0644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts := anchor.DefaultOpts
	cf := anchorFlags{}
	registerFlags(fs, &cf, &opts)
	require.NoError(t, fs.Parse([]string{"-config", path, "-anchor-length", "25"}))
	assert.NoError(t, loadConfig(ctx, cf.configPath, fs, &opts))
	// The flag wins over the file.
	expect.EQ(t, opts.AnchorLength, 25)
	expect.EQ(t, opts.QThreshold, 0.05)
	expect.EQ(t, opts.MaxSampleSize, 40)
	expect.EQ(t, opts.LmerLength, anchor.DefaultOpts.LmerLength)

	require.NoError(t, os.WriteFile(path, []byte("no_such_option = 1\n"), 0644))
	expect.True(t, loadConfig(ctx, path, fs, &opts) != nil)
}

func randomSeq(r *rand.Rand, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = "ACGT"[r.Intn(4)]
	}
	return string(buf)
}

// writeReads writes a FASTQ file of background reads and reads carrying the
// given anchor between random flanks.
func writeReads(t *testing.T, path, planted string) {
	r := rand.New(rand.NewSource(0))
	var reads []string
	for i := 0; i < 4; i++ {
		bg := randomSeq(r, 36)
		for j := 0; j < 50; j++ {
			reads = append(reads, bg)
		}
	}
	for i := 0; i < 60; i++ {
		reads = append(reads, randomSeq(r, 12)+planted+randomSeq(r, 12))
	}
	r.Shuffle(len(reads), func(i, j int) { reads[i], reads[j] = reads[j], reads[i] })
	f, err := os.Create(path)
	require.NoError(t, err)
	w := fastq.NewWriter(f)
	for i, seq := range reads {
		require.NoError(t, w.WriteSeq(anchor.RecordID(i), seq))
	}
	require.NoError(t, f.Close())
}

func testOpts() anchor.Opts {
	opts := anchor.DefaultOpts
	opts.AnchorLength = 12
	opts.LmerLength = 8
	opts.MinSampleSize = 10
	opts.MaxSampleSize = 30
	opts.JaccardThreshold = 0.5
	opts.NullBatchSize = 100000
	opts.Parallelism = 2
	return opts
}

func TestDetectWithSnapshot(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	const planted = "GATTACACCTGA"
	in := filepath.Join(dir, "reads.fastq")
	writeReads(t, in, planted)

	cf := anchorFlags{
		input:          in,
		outputPrefix:   filepath.Join(dir, "first"),
		registryOutput: filepath.Join(dir, "registry.rio"),
	}
	first, err := detect(ctx, cf, testOpts())
	assert.NoError(t, err)
	expect.EQ(t, first.Outcome, anchor.Significant)
	expect.EQ(t, first.Stats.Reads, 260)

	// Rerun the analysis from the saved registry.
	cf = anchorFlags{
		registryInput: filepath.Join(dir, "registry.rio"),
		outputPrefix:  filepath.Join(dir, "second"),
	}
	opts := testOpts()
	opts.AnchorLength = 31 // ignored: taken from the registry
	second, err := detect(ctx, cf, opts)
	assert.NoError(t, err)
	expect.EQ(t, second.Outcome, anchor.Significant)
	expect.EQ(t, second.Stats.Reads, 260)
	expect.EQ(t, len(second.Records), len(first.Records))
	_, err = os.Stat(filepath.Join(dir, "second"+anchor.TableSuffix))
	expect.NoError(t, err)

	// A registry and a FASTQ input cannot be combined.
	cf = anchorFlags{
		input:         in,
		registryInput: filepath.Join(dir, "registry.rio"),
		outputPrefix:  filepath.Join(dir, "third"),
	}
	_, err = detect(ctx, cf, testOpts())
	expect.True(t, errors.Is(errors.Invalid, err), "err: %v", err)
	_, err = os.Stat(filepath.Join(dir, "third"+anchor.ConfigSuffix))
	expect.True(t, os.IsNotExist(err))
}

func TestAnnotate(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	table := filepath.Join(dir, "table.tsv")
	require.NoError(t, os.WriteFile(table, []byte("SEQ_ID\tASSEMBLY\nseq_1\tACGT\n"), 0644))
	up := filepath.Join(dir, "up.tsv")
	require.NoError(t, os.WriteFile(up, []byte("Query\tHit\tEvalue\nseq_1\tphage\t0.001\n"), 0644))
	down := filepath.Join(dir, "down.tsv")
	require.NoError(t, os.WriteFile(down, []byte("Query\tHit\tEvalue\n"), 0644))

	out := filepath.Join(dir, "annotated.tsv.gz")
	assert.NoError(t, annotate(ctx, table, "nt:"+up+":"+down, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var b strings.Builder
	_, err = io.Copy(&b, gz)
	require.NoError(t, err)
	expect.EQ(t, b.String(),
		"SEQ_ID\tASSEMBLY\tblast_evalue_up_nt\tblast_hit_up_nt\tblast_evalue_dn_nt\tblast_hit_dn_nt\n"+
			"seq_1\tACGT\t0.001\tphage\tNA\tNA\n")

	expect.True(t, errors.Is(errors.Invalid, annotate(ctx, "", "nt:a:b", out)))
}

func TestPostProcess(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	const planted = "GATTACACCTGA"

	table := filepath.Join(dir, "table.tsv")
	require.NoError(t, os.WriteFile(table, []byte(strings.Join(anchor.TableHeader, "\t")+"\n"+
		"seq_1\tACGT\t5\t20\t1.2\t0.01\t"+planted+"\t0\t0\t0\t1\tN\t25\t25\t25\t25\t"+planted+"\n"), 0644))
	in := filepath.Join(dir, "reads.fastq")
	writeReads(t, in, planted)

	prefix := filepath.Join(dir, "sample")
	cf := anchorFlags{mode: modeSignificant, tablePath: table, outputPrefix: prefix}
	assert.NoError(t, postProcess(ctx, cf, testOpts()))

	cf = anchorFlags{
		mode:         modeAdjacent,
		input:        in,
		anchorsPath:  prefix + anchor.SignificantSuffix(anchor.Up),
		outputPrefix: prefix,
		adjacent:     anchor.AdjacentOpts{Distance: 0, Length: 4, SampleID: "sample"},
	}
	assert.NoError(t, postProcess(ctx, cf, testOpts()))
	f, err := os.Open(prefix + anchor.AdjacentCountsSuffix)
	require.NoError(t, err)
	_, counts, err := anchor.ReadAdjacentCounts(f)
	require.NoError(t, f.Close())
	assert.NoError(t, err)
	total := 0
	for _, c := range counts {
		expect.EQ(t, c.Anchor, planted)
		expect.EQ(t, len(c.Adjacent), 4)
		total += c.Count
	}
	// Every planted read has 12 bases after the anchor.
	expect.EQ(t, total, 60)

	cf.mode = modeNextBase
	cf.lookLength = 5
	assert.NoError(t, postProcess(ctx, cf, testOpts()))
	_, err = os.Stat(prefix + anchor.NextBaseFASTASuffix)
	expect.NoError(t, err)

	for _, cf := range []anchorFlags{
		{mode: "no-such-mode"},
		{mode: modeSignificant},
		{mode: modeAdjacent, input: in},
		{mode: modeMergeAdjacent},
		{mode: modeMergeSignificant, mergeInputs: " , "},
	} {
		err := postProcess(ctx, cf, testOpts())
		expect.True(t, errors.Is(errors.Invalid, err), "mode %s: %v", cf.mode, err)
	}
}
