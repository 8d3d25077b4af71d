package database

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/mapping"
	"github.com/berlinopendata/poisync/reconcile"
)

type Config struct {
	Type             string
	ConnectionParams string
	Schema           string
}

// DB is the destination store of the point records.
type DB interface {
	// Districts returns the reference district table.
	Districts(ctx context.Context) ([]reconcile.Entry, error)
	// Replace removes all rows of the table and inserts recs. The table
	// keeps its old content if Replace fails.
	Replace(ctx context.Context, table *mapping.Table, recs []element.Record) error
	// Report returns QA counts of the table.
	Report(ctx context.Context, table *mapping.Table) (*Report, error)
	Close() error
}

type DistrictCount struct {
	District string
	Count    int64
}

// Report contains counts for a quick check of a loaded table.
type Report struct {
	Table          string
	Total          int64
	NoDistrictID   int64
	NoCoordinates  int64
	NoNeighborhood int64
	// DuplicateIDs is the number of IDs that occur more than once.
	DuplicateIDs int64
	PerDistrict  []DistrictCount
}

func (r *Report) Write(w io.Writer) error {
	lines := []string{
		fmt.Sprintf("table %s: %s rows", r.Table, humanize.Comma(r.Total)),
		fmt.Sprintf("  without district_id: %s", humanize.Comma(r.NoDistrictID)),
		fmt.Sprintf("  without coordinates: %s", humanize.Comma(r.NoCoordinates)),
		fmt.Sprintf("  without neighborhood: %s", humanize.Comma(r.NoNeighborhood)),
		fmt.Sprintf("  duplicate ids: %s", humanize.Comma(r.DuplicateIDs)),
	}
	for _, d := range r.PerDistrict {
		name := d.District
		if name == "" {
			name = "(none)"
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", name, humanize.Comma(d.Count)))
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

var databases map[string]func(Config) (DB, error)

func init() {
	databases = make(map[string]func(Config) (DB, error))
}

func Register(name string, f func(Config) (DB, error)) {
	databases[name] = f
}

func Open(conf Config) (DB, error) {
	newFunc, ok := databases[conf.Type]
	if !ok {
		return nil, errors.New("unsupported database type: " + conf.Type)
	}

	db, err := newFunc(conf)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// ConnectionType returns the scheme of a connection string
// (postgis://... -> postgis). Empty connection strings are of type null.
func ConnectionType(param string) string {
	if param == "" {
		return "null"
	}
	parts := strings.SplitN(param, ":", 2)
	return parts[0]
}

// ErrNoDistricts is returned by databases without reference table.
var ErrNoDistricts = errors.New("database has no district table")

// NullDb discards all records. It is used for runs that only write
// derived files.
type NullDb struct{}

func (n *NullDb) Districts(context.Context) ([]reconcile.Entry, error) { return nil, ErrNoDistricts }
func (n *NullDb) Replace(context.Context, *mapping.Table, []element.Record) error {
	return nil
}
func (n *NullDb) Report(_ context.Context, table *mapping.Table) (*Report, error) {
	return &Report{Table: table.Name}, nil
}
func (n *NullDb) Close() error { return nil }

func NewNullDb(conf Config) (DB, error) {
	return &NullDb{}, nil
}

func init() {
	Register("null", NewNullDb)
}
