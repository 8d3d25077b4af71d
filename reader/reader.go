package reader

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"

	"github.com/berlinopendata/poisync/logging"
	"github.com/berlinopendata/poisync/mapping"
)

var log = logging.NewLogger("reader")

// Row is a single source feature with the raw text of the fields the
// normalizer uses. Empty fields are absent in the source.
type Row struct {
	ID          string `csv:"id"`
	Name        string `csv:"name"`
	Street      string `csv:"street"`
	HouseNumber string `csv:"housenumber"`
	Postcode    string `csv:"postcode"`
	Phone       string `csv:"phone"`
	Email       string `csv:"email"`
	Latitude    string `csv:"latitude"`
	Longitude   string `csv:"longitude"`
}

// ReadCSV reads all rows of a tabular feed export. The header of the
// export is translated to the canonical field names with columns.
// Columns that are not part of the mapping are ignored, missing columns
// result in empty fields.
func ReadCSV(r io.Reader, columns mapping.Columns) ([]Row, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty feed, missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}

	dec, err := csvutil.NewDecoder(cr, translateHeader(header, columns)...)
	if err != nil {
		return nil, errors.Wrap(err, "creating decoder")
	}

	var rows []Row
	for {
		var row Row
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "decoding row %d", len(rows)+1)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// translateHeader renames the source columns to canonical names.
// Unmapped columns get a name no Row field uses.
func translateHeader(header []string, columns mapping.Columns) []string {
	bySource := make(map[string]string)
	for canonical, source := range columns.Canonical() {
		bySource[source] = canonical
	}
	result := make([]string, len(header))
	seen := make(map[string]bool)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		canonical, ok := bySource[h]
		if !ok || seen[canonical] {
			result[i] = "-unmapped-" + strconv.Itoa(i)
			continue
		}
		seen[canonical] = true
		result[i] = canonical
	}
	return result
}

// SnapshotDateFormat is the format of snapshot identifiers.
const SnapshotDateFormat = "2006-01-02"

// SnapshotFile returns the path of the feed export for the snapshot
// identifier (a date like 2025-10-01). The snapshot is always passed
// explicitly, the directory is never scanned for the latest export.
func SnapshotFile(dir, prefix, snapshot string) (string, error) {
	if err := ValidSnapshot(snapshot); err != nil {
		return "", err
	}
	path := filepath.Join(dir, prefix+snapshot+".csv")
	fi, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "snapshot %s", snapshot)
	}
	if fi.IsDir() {
		return "", errors.Errorf("snapshot %s: %s is a directory", snapshot, path)
	}
	return path, nil
}

// ValidSnapshot checks the format of a snapshot identifier.
func ValidSnapshot(snapshot string) error {
	if snapshot == "" {
		return errors.New("missing snapshot identifier")
	}
	if _, err := time.Parse(SnapshotDateFormat, snapshot); err != nil {
		return errors.Errorf("invalid snapshot identifier %q, expected YYYY-MM-DD", snapshot)
	}
	return nil
}

// ReadFile reads the feed from a CSV export or a PBF extract, depending
// on the file extension.
func ReadFile(ctx context.Context, filename string, feed *mapping.Feed) ([]Row, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening source feed")
	}
	defer f.Close()

	var rows []Row
	if strings.HasSuffix(filename, ".pbf") {
		rows, err = ReadPBF(ctx, f, feed)
	} else {
		rows, err = ReadCSV(f, feed.Columns)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	log.Printf("read %d rows from %s", len(rows), filename)
	return rows, nil
}
