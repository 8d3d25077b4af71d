package database

import (
	"bytes"
	"context"
	"testing"

	"github.com/berlinopendata/poisync/mapping"
)

func TestConnectionType(t *testing.T) {
	for param, expected := range map[string]string{
		"postgis://user@localhost/berlin": "postgis",
		"postgres://localhost":            "postgres",
		"":                                "null",
		"null:":                           "null",
	} {
		if got := ConnectionType(param); got != expected {
			t.Errorf("ConnectionType(%q) = %q, expected %q", param, got, expected)
		}
	}
}

func TestOpenNull(t *testing.T) {
	db, err := Open(Config{Type: "null"})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Districts(context.Background()); err != ErrNoDistricts {
		t.Errorf("unexpected error %v", err)
	}
	table := &mapping.Table{Name: "gyms", IDColumn: "gym_id"}
	if err := db.Replace(context.Background(), table, nil); err != nil {
		t.Error(err)
	}
	r, err := db.Report(context.Background(), table)
	if err != nil || r.Table != "gyms" || r.Total != 0 {
		t.Errorf("unexpected report %+v %v", r, err)
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open(Config{Type: "mysql"}); err == nil {
		t.Error("expected error")
	}
}

func TestReportWrite(t *testing.T) {
	r := &Report{
		Table:         "gyms",
		Total:         1234,
		NoCoordinates: 2,
		PerDistrict: []DistrictCount{
			{"Mitte", 1000},
			{"", 234},
		},
	}
	buf := &bytes.Buffer{}
	if err := r.Write(buf); err != nil {
		t.Fatal(err)
	}
	expected := `table gyms: 1,234 rows
  without district_id: 0
  without coordinates: 2
  without neighborhood: 0
  duplicate ids: 0
  Mitte: 1,000
  (none): 234
`
	if buf.String() != expected {
		t.Errorf("unexpected report:\n%s", buf.String())
	}
}
