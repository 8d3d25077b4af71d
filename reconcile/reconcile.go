// Package reconcile maps district names to the canonical district
// identifiers of the destination store.
package reconcile

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/logging"
)

var log = logging.NewLogger("reconcile")

// Entry is a single row of the reference district table.
type Entry struct {
	ID   string `csv:"district_id"`
	Name string `csv:"district"`
}

// Key returns the match key of a district name: trimmed and lowercased.
func Key(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// Resolver is an injective lookup from district name to district ID.
type Resolver struct {
	ids map[string]string
}

// NewResolver builds a resolver for all entries. Entries without name
// are skipped. Returns an error for entries without ID and for names
// that map to more than one ID. Resolve returns the IDs exactly as
// they are in the reference table.
func NewResolver(entries []Entry) (*Resolver, error) {
	r := &Resolver{ids: make(map[string]string, len(entries))}
	for _, e := range entries {
		key := Key(e.Name)
		if key == "" {
			log.Warnf("district %q without name, skipping", e.ID)
			continue
		}
		// ids are stored verbatim, they are foreign keys of the districts table
		id := e.ID
		if strings.TrimSpace(id) == "" {
			return nil, errors.Errorf("district %q without id", e.Name)
		}
		if prev, ok := r.ids[key]; ok && prev != id {
			return nil, errors.Errorf("district %q maps to %s and %s", e.Name, prev, id)
		}
		r.ids[key] = id
	}
	return r, nil
}

// Resolve returns the district ID for name.
func (r *Resolver) Resolve(name string) (string, bool) {
	key := Key(name)
	if key == "" {
		return "", false
	}
	id, ok := r.ids[key]
	return id, ok
}

func (r *Resolver) Len() int {
	return len(r.ids)
}

// Keys returns all match keys in sorted order.
func (r *Resolver) Keys() []string {
	keys := make([]string, 0, len(r.ids))
	for k := range r.ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Stats struct {
	Matched    int
	NoDistrict int
	Unmatched  int
}

// Reconcile returns all records with a district that the resolver
// knows, with DistrictID set to the resolved ID. All other records are
// dropped. recs is not modified.
func Reconcile(recs []element.Record, r *Resolver) ([]element.Record, Stats) {
	stats := Stats{}
	result := make([]element.Record, 0, len(recs))
	unmatched := make(map[string]int)
	for _, rec := range recs {
		if rec.District == "" {
			stats.NoDistrict++
			continue
		}
		id, ok := r.Resolve(rec.District)
		if !ok {
			stats.Unmatched++
			unmatched[rec.District]++
			continue
		}
		rec.DistrictID = id
		result = append(result, rec)
		stats.Matched++
	}
	names := make([]string, 0, len(unmatched))
	for name := range unmatched {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		log.Warnf("district %q not in reference table, dropped %d records", name, unmatched[name])
	}
	return result, stats
}

// ReadEntries reads a reference table from CSV with district_id and
// district columns.
func ReadEntries(r io.Reader) ([]Entry, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err == io.EOF {
		return nil, errors.New("empty reference table, missing header")
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading reference table")
	}
	for _, col := range []string{"district_id", "district"} {
		if !contains(dec.Header(), col) {
			return nil, errors.Errorf("reference table without %s column", col)
		}
	}

	var entries []Entry
	for {
		var e Entry
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "decoding reference row %d", len(entries)+1)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
