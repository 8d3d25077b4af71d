package pipeline

import (
	"reflect"
	"strings"
	"testing"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/geom/layer"
	"github.com/berlinopendata/poisync/mapping"
	"github.com/berlinopendata/poisync/reader"
	"github.com/berlinopendata/poisync/reconcile"
)

const districts = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "properties": {"Gemeinde_name": "Mitte", "Schluessel_gesamt": "11001001"},
	 "geometry": {"type": "Polygon", "coordinates": [[[13.30, 52.50], [13.45, 52.50], [13.45, 52.55], [13.30, 52.55], [13.30, 52.50]]]}},
	{"type": "Feature", "properties": {"Gemeinde_name": "Pankow", "Schluessel_gesamt": "11003003"},
	 "geometry": {"type": "Polygon", "coordinates": [[[13.30, 52.55], [13.45, 52.55], [13.45, 52.65], [13.30, 52.65], [13.30, 52.55]]]}}
]}`

const neighborhoods = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "properties": {"spatial_alias": "Alexanderplatz"},
	 "geometry": {"type": "Polygon", "coordinates": [[[13.38, 52.51], [13.43, 52.51], [13.43, 52.53], [13.38, 52.53], [13.38, 52.51]]]}}
]}`

func testLayers(t *testing.T) Layers {
	d, err := layer.FromGeoJSON(strings.NewReader(districts), "districts", "Gemeinde_name", "Schluessel_gesamt", layer.Smallest)
	if err != nil {
		t.Fatal(err)
	}
	n, err := layer.FromGeoJSON(strings.NewReader(neighborhoods), "neighborhoods", "spatial_alias", "", layer.Smallest)
	if err != nil {
		t.Fatal(err)
	}
	return Layers{Districts: d, Neighborhoods: n}
}

func testResolver(t *testing.T) *reconcile.Resolver {
	r, err := reconcile.NewResolver([]reconcile.Entry{{ID: "01", Name: "mitte"}})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func gyms(t *testing.T) *mapping.Feed {
	f, err := mapping.Default().Feed("gyms")
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRun(t *testing.T) {
	rows := []reader.Row{
		{ID: "55.0", Street: "Hauptstr", HouseNumber: "12", Postcode: "10115", Latitude: "52.52", Longitude: "13.40"},
		{ID: "56", Name: "Gym ohne Lage", Street: "Hauptstr", HouseNumber: "12", Postcode: "10115", Longitude: "13.40"},
		{ID: "57", Name: "Pankow Gym", Latitude: "52.6", Longitude: "13.35"},
		{ID: "58", Name: "Paris Gym", Latitude: "48.85", Longitude: "2.35"},
	}
	res, err := Run(rows, gyms(t), testLayers(t), testResolver(t))
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Joined) != 4 {
		t.Fatalf("expected 4 joined records, got %d", len(res.Joined))
	}
	if len(res.Final) != 1 {
		t.Fatalf("expected 1 final record, got %+v", res.Final)
	}

	final := res.Final[0]
	if final.Point == nil {
		t.Fatal("final record without point")
	}
	if wkt, _ := final.Coordinates(); wkt != "POINT (13.4 52.52)" {
		t.Errorf("unexpected coordinates %q", wkt)
	}
	final.Point = nil
	expected := element.Record{
		ID:           "55",
		Name:         "Unknown Gym",
		Address:      "Hauptstr 12",
		PostalCode:   "10115",
		DistrictID:   "01",
		District:     "Mitte",
		Neighborhood: "Alexanderplatz",
	}
	if final != expected {
		t.Errorf("unexpected final record %+v", final)
	}

	// record without latitude is not located and not loaded
	noPoint := res.Joined[1]
	if _, ok := noPoint.Coordinates(); ok || noPoint.District != "" || noPoint.DistrictID != "" || noPoint.Neighborhood != "" {
		t.Errorf("unexpected record %+v", noPoint)
	}

	// Pankow is located but not in the reference table
	if res.Joined[2].District != "Pankow" || res.Joined[2].DistrictID != "11003003" {
		t.Errorf("unexpected joined record %+v", res.Joined[2])
	}
	if res.Joined[3].District != "" {
		t.Errorf("unexpected joined record %+v", res.Joined[3])
	}

	if res.Reconcile.Matched != 1 || res.Reconcile.Unmatched != 1 || res.Reconcile.NoDistrict != 2 {
		t.Errorf("unexpected reconcile stats %+v", res.Reconcile)
	}
	if res.Join.Tested != 3 || res.Join.NoPoint != 1 {
		t.Errorf("unexpected join stats %+v", res.Join)
	}
}

func TestRunIdempotent(t *testing.T) {
	rows := []reader.Row{
		{ID: "1", Name: "A", Latitude: "52.52", Longitude: "13.40"},
		{ID: "2", Name: "B", Latitude: "52.51", Longitude: "13.31"},
		{ID: "3", Name: "C", Latitude: "52.60", Longitude: "13.40"},
	}
	feed, layers, resolver := gyms(t), testLayers(t), testResolver(t)

	first, err := Run(rows, feed, layers, resolver)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Run(rows, feed, layers, resolver)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first, second)
	}
	if len(first.Final) != 2 {
		t.Errorf("unexpected final records %+v", first.Final)
	}
}

func TestRunErrors(t *testing.T) {
	if _, err := Run(nil, nil, testLayers(t), testResolver(t)); err == nil {
		t.Error("expected error for missing feed")
	}
	if _, err := Run(nil, gyms(t), Layers{}, testResolver(t)); err == nil {
		t.Error("expected error for missing districts")
	}
	if _, err := Run(nil, gyms(t), testLayers(t), nil); err == nil {
		t.Error("expected error for missing resolver")
	}
}

func TestRunDistrictIDsFromReference(t *testing.T) {
	entries := []reconcile.Entry{
		{ID: "1.0", Name: "Mitte"},
		{ID: " 03", Name: "Pankow"},
	}
	resolver, err := reconcile.NewResolver(entries)
	if err != nil {
		t.Fatal(err)
	}
	rows := []reader.Row{
		{ID: "1", Name: "A", Latitude: "52.52", Longitude: "13.40"},
		{ID: "2", Name: "B", Latitude: "52.60", Longitude: "13.40"},
		{ID: "3", Name: "C", Latitude: "48.85", Longitude: "2.35"},
	}
	res, err := Run(rows, gyms(t), testLayers(t), resolver)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Final) != 2 {
		t.Fatalf("unexpected final records %+v", res.Final)
	}

	ids := make(map[string]bool)
	for _, e := range entries {
		ids[e.ID] = true
	}
	for _, rec := range res.Final {
		if !ids[rec.DistrictID] {
			t.Errorf("district id %q of record %s not in reference table", rec.DistrictID, rec.ID)
		}
	}
	if res.Final[0].DistrictID != "1.0" || res.Final[1].DistrictID != " 03" {
		t.Errorf("unexpected district ids %q, %q", res.Final[0].DistrictID, res.Final[1].DistrictID)
	}
}
