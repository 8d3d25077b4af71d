/*
Package import_ provides the import sub command.
*/
package import_

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/berlinopendata/poisync/config"
	"github.com/berlinopendata/poisync/database"
	_ "github.com/berlinopendata/poisync/database/postgis"
	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/geom/layer"
	"github.com/berlinopendata/poisync/logging"
	"github.com/berlinopendata/poisync/mapping"
	"github.com/berlinopendata/poisync/pipeline"
	"github.com/berlinopendata/poisync/reader"
	"github.com/berlinopendata/poisync/reconcile"
	"github.com/berlinopendata/poisync/stats"
	"github.com/berlinopendata/poisync/writer"
)

var log = logging.NewLogger("")

// Import runs one snapshot of a feed through the pipeline, writes the
// derived files and optionally replaces the database table.
func Import(ctx context.Context, opts *config.Options) error {
	if opts.Quiet {
		logging.SetQuiet(true)
	}
	if opts.Verbose {
		logging.SetVerbose(true)
	}

	feed, err := loadFeed(opts)
	if err != nil {
		return err
	}
	policy, err := layer.ParsePolicy(opts.Ambiguous)
	if err != nil {
		return err
	}

	conf := database.Config{
		Type:             database.ConnectionType(opts.Connection),
		ConnectionParams: opts.Connection,
		Schema:           opts.Schema,
	}
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()

	step := log.StartStep("Importing " + feed.Name)
	summary := stats.NewSummary(feed.Name)

	source, err := sourceFile(opts, feed)
	if err != nil {
		return err
	}
	readStep := log.StartStep("Reading " + source)
	rows, err := reader.ReadFile(ctx, source, feed)
	if err != nil {
		return err
	}
	log.StopStep(readStep)

	layers, err := readLayers(opts, policy)
	if err != nil {
		return err
	}

	resolver, err := loadResolver(ctx, opts, db)
	if err != nil {
		return err
	}
	log.Printf("%d districts in reference table", resolver.Len())
	log.Debugf("reference districts: %s", strings.Join(resolver.Keys(), ", "))

	res, err := pipeline.Run(rows, feed, layers, resolver)
	if err != nil {
		return err
	}
	summary.Add("normalize", res.Normalize.Rows, len(res.Joined),
		stats.Count{Name: "without id", N: res.Normalize.MissingID},
		stats.Count{Name: "without coordinates", N: res.Normalize.NoPoint},
	)
	summary.Add("join", res.Join.Tested, res.Join.District,
		stats.Count{Name: "in neighborhood", N: res.Join.Neighborhood},
	)
	summary.Add("reconcile", len(res.Joined), len(res.Final),
		stats.Count{Name: "without district", N: res.Reconcile.NoDistrict},
		stats.Count{Name: "unknown district", N: res.Reconcile.Unmatched},
	)

	if err := writeDerivedFiles(opts.OutDir, feed, res); err != nil {
		return err
	}

	if opts.Write {
		if err := replaceTable(ctx, db, feed, res.Final); err != nil {
			return err
		}
	}

	log.StopStep(step)
	return logLines(summary.Write)
}

func loadFeed(opts *config.Options) (*mapping.Feed, error) {
	var m *mapping.Mapping
	var err error
	if opts.MappingFile != "" {
		m, err = mapping.NewMapping(opts.MappingFile)
		if err != nil {
			return nil, errors.Wrap(err, "mapping file")
		}
	} else {
		m = mapping.Default()
	}
	return m.Feed(opts.Feed)
}

// sourceFile returns the file of the -read option or the export of
// the -snapshot date.
func sourceFile(opts *config.Options, feed *mapping.Feed) (string, error) {
	if opts.Read != "" {
		if strings.HasSuffix(opts.Read, ".pbf") {
			if snapshot, err := snapshotFromPBF(opts.Read); err == nil {
				log.Printf("reading PBF snapshot from %s", snapshot)
			}
		}
		return opts.Read, nil
	}
	return reader.SnapshotFile(opts.SourceDir, feed.FilePrefix, opts.Snapshot)
}

func readLayers(opts *config.Options, policy layer.Policy) (pipeline.Layers, error) {
	defer log.StopStep(log.StartStep("Reading polygon layers"))
	districts, err := readLayer("districts", opts.Districts, policy)
	if err != nil {
		return pipeline.Layers{}, err
	}
	neighborhoods, err := readLayer("neighborhoods", opts.Neighborhoods, policy)
	if err != nil {
		return pipeline.Layers{}, err
	}
	return pipeline.Layers{Districts: districts, Neighborhoods: neighborhoods}, nil
}

func readLayer(name string, conf config.LayerConfig, policy layer.Policy) (*layer.Layer, error) {
	f, err := os.Open(conf.File)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s layer", name)
	}
	defer f.Close()
	l, err := layer.FromGeoJSON(f, name, conf.NameAttr, conf.KeyAttr, policy)
	if err != nil {
		return nil, err
	}
	log.Printf("%d %s from %s", len(l.Polygons), name, conf.File)
	return l, nil
}

// loadResolver reads the reference table from the -reference CSV or
// from the districts table of the database.
func loadResolver(ctx context.Context, opts *config.Options, db database.DB) (*reconcile.Resolver, error) {
	var entries []reconcile.Entry
	if opts.Reference != "" {
		f, err := os.Open(opts.Reference)
		if err != nil {
			return nil, errors.Wrap(err, "opening reference table")
		}
		defer f.Close()
		entries, err = reconcile.ReadEntries(f)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", opts.Reference)
		}
	} else {
		var err error
		entries, err = db.Districts(ctx)
		if err == database.ErrNoDistricts {
			return nil, errors.New("no district reference table, use -connection or -reference")
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading districts")
		}
	}
	if len(entries) == 0 {
		return nil, errors.New("empty district reference table")
	}
	return reconcile.NewResolver(entries)
}

// DerivedFiles returns the names of the files written for the feed.
func DerivedFiles(outDir string, feed *mapping.Feed) (joinedCSV, joinedGeoJSON, finalCSV string) {
	base := filepath.Join(outDir, feed.Name)
	return base + "_with_district_and_neighborhood.csv",
		base + "_with_district_and_neighborhood.geojson",
		base + "_db_ready_final.csv"
}

func writeDerivedFiles(outDir string, feed *mapping.Feed, res *pipeline.Result) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	joinedCSV, joinedGeoJSON, finalCSV := DerivedFiles(outDir, feed)
	idColumn := feed.Table.IDColumn

	if err := writeFile(joinedCSV, func(w io.Writer) error {
		return writer.WriteCSV(w, idColumn, res.Joined)
	}); err != nil {
		return err
	}
	if err := writeFile(joinedGeoJSON, func(w io.Writer) error {
		return writer.WriteGeoJSON(w, idColumn, res.Joined)
	}); err != nil {
		return err
	}
	return writeFile(finalCSV, func(w io.Writer) error {
		return writer.WriteCSV(w, idColumn, res.Final)
	})
}

// writeFile writes to a temporary file that is renamed on success, so
// that a failed run does not leave a partial file behind.
func writeFile(filename string, write func(io.Writer) error) error {
	tmp := filename + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "writing %s", filename)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "writing %s", filename)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return errors.Wrapf(err, "writing %s", filename)
	}
	if fi, err := os.Stat(filename); err == nil {
		log.Printf("wrote %s (%s)", filename, stats.FileSize(fi.Size()))
	}
	return nil
}

func replaceTable(ctx context.Context, db database.DB, feed *mapping.Feed, recs []element.Record) error {
	if !feed.Table.Load {
		log.Warnf("feed %s is not loaded into the database, only derived files written", feed.Name)
		return nil
	}
	if err := db.Replace(ctx, &feed.Table, recs); err != nil {
		return errors.Wrapf(err, "replacing %s", feed.Table.Name)
	}
	report, err := db.Report(ctx, &feed.Table)
	if err != nil {
		return errors.Wrapf(err, "checking %s", feed.Table.Name)
	}
	return logLines(report.Write)
}

// logLines logs each line of the output of write.
func logLines(write func(io.Writer) error) error {
	var b strings.Builder
	if err := write(&b); err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimRight(b.String(), "\n"), "\n") {
		log.Print(line)
	}
	return nil
}
