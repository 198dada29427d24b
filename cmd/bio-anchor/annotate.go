package main

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/anchors/anchor"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

type hitSpec struct {
	db    string
	paths [2]string // up, down
}

// parseHitSpecs parses "db:up:down[,db:up:down...]".
func parseHitSpecs(s string) ([]hitSpec, error) {
	var specs []hitSpec
	for _, field := range strings.Split(s, ",") {
		if field == "" {
			continue
		}
		parts := strings.Split(field, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, errors.E(errors.Invalid, "malformed hit spec", field, "(want db:up_hits:down_hits)")
		}
		specs = append(specs, hitSpec{db: parts[0], paths: [2]string{parts[1], parts[2]}})
	}
	if len(specs) == 0 {
		return nil, errors.E(errors.Invalid, "no hit files given")
	}
	return specs, nil
}

// withReader opens a (possibly compressed) file and calls fn with its
// contents.
func withReader(ctx context.Context, path string, fn func(r io.Reader) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return fn(r)
}

// annotate appends the best hits listed in hitsSpec to the cluster table.
func annotate(ctx context.Context, tablePath, hitsSpec, outPath string) (err error) {
	if tablePath == "" {
		return errors.E(errors.Invalid, "-table is required")
	}
	specs, err := parseHitSpecs(hitsSpec)
	if err != nil {
		return err
	}
	sets := make([]anchor.HitSet, len(specs))
	for i, spec := range specs {
		sets[i].DB = spec.db
		for d, path := range spec.paths {
			err := withReader(ctx, path, func(r io.Reader) (err error) {
				sets[i].Hits[d], err = anchor.ReadBestHits(r)
				return err
			})
			if err != nil {
				return errors.E(err, "read hits", path)
			}
		}
	}
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return errors.E(err, "create", outPath)
	}
	defer file.CloseAndReport(ctx, out, &err)
	var w io.Writer = out.Writer(ctx)
	var gz *gzip.Writer
	if strings.HasSuffix(outPath, ".gz") {
		gz = gzip.NewWriter(w)
		w = gz
	}
	err = withReader(ctx, tablePath, func(r io.Reader) error {
		return anchor.JoinAnnotations(r, w, sets)
	})
	if err != nil {
		return err
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}
