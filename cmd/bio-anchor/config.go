package main

import (
	"context"
	"flag"

	"github.com/grailbio/anchors/anchor"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/pelletier/go-toml/v2"
)

// loadConfig overlays the TOML file at path onto opts. Keys are the toml tags
// of anchor.Opts. Flags explicitly set in fs are then applied again, so the
// command line takes precedence over the file.
func loadConfig(ctx context.Context, path string, fs *flag.FlagSet, opts *anchor.Opts) (err error) {
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	defer file.CloseAndReport(ctx, in, &err)
	dec := toml.NewDecoder(in.Reader(ctx))
	dec.DisallowUnknownFields()
	if err = dec.Decode(opts); err != nil {
		return errors.E(errors.Invalid, err, "parse", path)
	}
	for name, value := range explicit {
		if err = fs.Set(name, value); err != nil {
			return errors.E(errors.Invalid, err, "flag", name)
		}
	}
	return nil
}
