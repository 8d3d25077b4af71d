// Package writer writes point records as derived CSV and GeoJSON files.
package writer

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/geom/geojson"
)

// Columns returns the column names of the derived files. The first
// column is named after the ID column of the feed table (gym_id).
func Columns(idColumn string) []string {
	return []string{idColumn, "district_id", "name", "address", "postal_code", "phone_number",
		"email", "coordinates", "latitude", "longitude", "neighborhood", "district"}
}

type csvRow struct {
	ID           string `csv:"id"`
	DistrictID   string `csv:"district_id"`
	Name         string `csv:"name"`
	Address      string `csv:"address"`
	PostalCode   string `csv:"postal_code"`
	Phone        string `csv:"phone_number"`
	Email        string `csv:"email"`
	Coordinates  string `csv:"coordinates"`
	Latitude     string `csv:"latitude"`
	Longitude    string `csv:"longitude"`
	Neighborhood string `csv:"neighborhood"`
	District     string `csv:"district"`
}

func newCSVRow(rec *element.Record) csvRow {
	row := csvRow{
		ID:           rec.ID,
		DistrictID:   rec.DistrictID,
		Name:         rec.Name,
		Address:      rec.Address,
		PostalCode:   rec.PostalCode,
		Phone:        rec.Phone,
		Email:        rec.Email,
		Neighborhood: rec.Neighborhood,
		District:     rec.District,
	}
	if wkt, ok := rec.Coordinates(); ok {
		row.Coordinates = wkt
		row.Latitude = element.FormatFloat(rec.Point.Lat)
		row.Longitude = element.FormatFloat(rec.Point.Long)
	}
	return row
}

// WriteCSV writes all records with a header row. Unset fields are
// written as empty cells.
func WriteCSV(w io.Writer, idColumn string, recs []element.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(idColumn)); err != nil {
		return errors.Wrap(err, "writing header")
	}

	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	for i := range recs {
		if err := enc.Encode(newCSVRow(&recs[i])); err != nil {
			return errors.Wrapf(err, "writing record %s", recs[i].ID)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGeoJSON writes all records with a point as FeatureCollection.
// The properties are the CSV columns, unset fields are null.
func WriteGeoJSON(w io.Writer, idColumn string, recs []element.Record) error {
	features := make([]geojson.Feature, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if rec.Point == nil {
			continue
		}
		wkt, _ := rec.Coordinates()
		features = append(features, geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{rec.Point.Long, rec.Point.Lat}),
			Properties: map[string]interface{}{
				idColumn:       rec.ID,
				"district_id":  nullString(rec.DistrictID),
				"name":         rec.Name,
				"address":      rec.Address,
				"postal_code":  rec.PostalCode,
				"phone_number": rec.Phone,
				"email":        rec.Email,
				"coordinates":  wkt,
				"latitude":     rec.Point.Lat,
				"longitude":    rec.Point.Long,
				"neighborhood": nullString(rec.Neighborhood),
				"district":     nullString(rec.District),
			},
		})
	}
	return geojson.WriteFeatures(w, features)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
