// Package normalize converts raw feed rows into point records.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/logging"
	"github.com/berlinopendata/poisync/mapping"
	"github.com/berlinopendata/poisync/reader"
)

var log = logging.NewLogger("normalize")

type Stats struct {
	Rows      int
	MissingID int
	NoPoint   int
}

// Normalize returns one record for each row with a native ID, in input
// order. Rows without ID are skipped and counted. District fields of
// the records are left empty.
func Normalize(rows []reader.Row, feed *mapping.Feed) ([]element.Record, Stats) {
	stats := Stats{Rows: len(rows)}
	recs := make([]element.Record, 0, len(rows))
	for i, row := range rows {
		rec, ok := Record(row, feed.DefaultName)
		if !ok {
			stats.MissingID++
			log.Warnf("row %d without %s, skipping", i+1, feed.Columns.ID)
			continue
		}
		if rec.Point == nil {
			stats.NoPoint++
		}
		recs = append(recs, rec)
	}
	return recs, stats
}

// Record converts a single row. Returns false if the row has no ID.
func Record(row reader.Row, defaultName string) (element.Record, bool) {
	id := element.CleanID(row.ID)
	if id == "" {
		return element.Record{}, false
	}
	name := row.Name
	if name == "" {
		name = defaultName
	}
	rec := element.Record{
		ID:         id,
		Name:       name,
		Address:    strings.TrimSpace(row.Street + " " + row.HouseNumber),
		PostalCode: element.CleanID(row.Postcode),
		Phone:      row.Phone,
		Email:      row.Email,
	}
	lat, latOk := ParseCoord(row.Latitude, 90)
	long, longOk := ParseCoord(row.Longitude, 180)
	if latOk && longOk {
		rec.Point = &element.Point{Long: long, Lat: lat}
	}
	return rec, true
}

// ParseCoord parses a coordinate in decimal degrees. Returns false for
// empty, non-numeric, non-finite or out of range values.
func ParseCoord(s string, limit float64) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < -limit || f > limit {
		return 0, false
	}
	return f, true
}
