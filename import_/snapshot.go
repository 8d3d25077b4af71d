package import_

import (
	"os"

	"github.com/omniscale/go-osm/parser/pbf"
	"github.com/pkg/errors"

	"github.com/berlinopendata/poisync/reader"
)

// snapshotFromPBF returns the snapshot date of a PBF extract. The date
// is taken from the replication timestamp of the PBF header, or from
// the modification time of the file if the header has no timestamp.
func snapshotFromPBF(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", errors.Wrap(err, "opening PBF file")
	}
	defer f.Close()

	pbfparser := pbf.New(f, pbf.Config{})
	header, err := pbfparser.Header()
	if err == nil && header.Time.Unix() > 0 {
		return header.Time.UTC().Format(reader.SnapshotDateFormat), nil
	}

	fstat, err := os.Stat(filename)
	if err != nil {
		return "", errors.Wrapf(err, "reading mod time from %q", filename)
	}
	return fstat.ModTime().UTC().Format(reader.SnapshotDateFormat), nil
}
