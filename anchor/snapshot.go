package anchor

// This file defines the registry snapshot: the state of the registry after
// the streaming pass, stored in a recordio file so that testing and assembly
// can be rerun without reading the FASTQ input again.

import (
	"bytes"
	"context"
	"encoding/gob"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
)

const (
	// <snapshotVersionHeader, snapshotVersion> is stored in a recordio header.
	snapshotVersionHeader = "anchorsnapshot"
	snapshotVersion       = "ANCHOR_V1"
)

// snapshotTrailer is stored in the trailer section of the recordio file.
type snapshotTrailer struct {
	// Opts is the list of options used to build the registry.
	Opts  Opts
	Stats Stats
}

type snapshotFlank struct {
	Done      bool
	Lookahead int
	Count     int
	Keys      []string
	Counts    []int
	Growth    []bool
}

// snapshotAnchor is the gob form of one registry entry.
type snapshotAnchor struct {
	Seq    string
	Flanks [2]snapshotFlank
}

func toSnapshot(a *Anchor) snapshotAnchor {
	s := snapshotAnchor{Seq: a.Seq}
	for _, d := range directions {
		f := &a.Flanks[d]
		sf := &s.Flanks[d]
		sf.Done, sf.Lookahead, sf.Count, sf.Growth = f.Done, f.Lookahead, f.Count, f.Growth
		for _, e := range f.Diversity.entries {
			sf.Keys = append(sf.Keys, e.key)
			sf.Counts = append(sf.Counts, e.count)
		}
	}
	return s
}

func fromSnapshot(s snapshotAnchor) (*Anchor, error) {
	a := &Anchor{Seq: s.Seq}
	for _, d := range directions {
		sf := &s.Flanks[d]
		if len(sf.Keys) != len(sf.Counts) || len(sf.Growth) != sf.Count {
			return nil, errors.E(errors.Integrity, "corrupt snapshot entry", s.Seq)
		}
		f := &a.Flanks[d]
		f.Done, f.Lookahead, f.Count, f.Growth = sf.Done, sf.Lookahead, sf.Count, sf.Growth
		for i, key := range sf.Keys {
			f.Diversity.entries = append(f.Diversity.entries, diversityEntry{key: key, count: sf.Counts[i]})
		}
	}
	return a, nil
}

// WriteSnapshot stores reg, the options and the statistics of the streaming
// pass in a zstd-compressed recordio file.
func WriteSnapshot(ctx context.Context, path string, reg *Registry, opts Opts, stats Stats) (err error) {
	recordiozstd.Init()
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := recordio.NewWriter(out.Writer(ctx), recordio.WriterOpts{
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(snapshotVersionHeader, snapshotVersion)
	w.AddHeader(recordio.KeyTrailer, true)
	for _, a := range reg.anchors {
		b := bytes.NewBuffer(nil)
		if err := gob.NewEncoder(b).Encode(toSnapshot(a)); err != nil {
			return errors.E(err, "encode", a.Seq)
		}
		w.Append(b.Bytes())
	}
	b := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(b).Encode(snapshotTrailer{Opts: opts, Stats: stats}); err != nil {
		return errors.E(err, "encode trailer")
	}
	w.SetTrailer(b.Bytes())
	if err := w.Finish(); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}

// ReadSnapshot reads a file created by WriteSnapshot.
func ReadSnapshot(ctx context.Context, path string) (reg *Registry, opts Opts, stats Stats, err error) {
	recordiozstd.Init()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, opts, stats, errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	versionFound := false
	for _, kv := range r.Header() {
		if kv.Key == snapshotVersionHeader {
			if v, ok := kv.Value.(string); !ok || v != snapshotVersion {
				return nil, opts, stats, errors.E(errors.Invalid, "snapshot version mismatch in", path)
			}
			versionFound = true
			break
		}
	}
	if !versionFound {
		return nil, opts, stats, errors.E(errors.Invalid, snapshotVersionHeader+" not found in", path)
	}
	var trailer snapshotTrailer
	if err := gob.NewDecoder(bytes.NewReader(r.Trailer())).Decode(&trailer); err != nil {
		return nil, opts, stats, errors.E(err, "decode trailer", path)
	}
	reg = NewRegistry()
	for r.Scan() {
		var s snapshotAnchor
		if err := gob.NewDecoder(bytes.NewReader(r.Get().([]byte))).Decode(&s); err != nil {
			return nil, opts, stats, errors.E(err, "decode", path)
		}
		a, err := fromSnapshot(s)
		if err != nil {
			return nil, opts, stats, err
		}
		if reg.Get(a.Seq) != nil {
			return nil, opts, stats, errors.E(errors.Integrity, "duplicate anchor", a.Seq, "in", path)
		}
		reg.add(a)
	}
	if err := r.Err(); err != nil {
		return nil, opts, stats, errors.E(err, "read", path)
	}
	return reg, trailer.Opts, trailer.Stats, nil
}
