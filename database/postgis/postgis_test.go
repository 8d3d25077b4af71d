package postgis

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/mapping"
)

func gymsSpec() *TableSpec {
	return NewTableSpec("berlin", &mapping.Table{Name: "gyms", IDColumn: "gym_id", Load: true})
}

func TestColumnNames(t *testing.T) {
	expected := []string{"gym_id", "district_id", "name", "address", "postal_code", "phone_number",
		"email", "coordinates", "latitude", "longitude", "neighborhood", "district"}
	if cols := gymsSpec().ColumnNames(); !reflect.DeepEqual(cols, expected) {
		t.Errorf("unexpected columns %v", cols)
	}
}

func TestTableSQL(t *testing.T) {
	spec := gymsSpec()

	if sql := spec.CreateSchemaSQL(); sql != `CREATE SCHEMA IF NOT EXISTS "berlin"` {
		t.Error(sql)
	}
	sql := spec.CreateTableSQL()
	for _, part := range []string{
		`CREATE TABLE IF NOT EXISTS "berlin"."gyms"`,
		`"gym_id" VARCHAR(20) PRIMARY KEY`,
		`"latitude" DECIMAL(9,6)`,
		`"district" VARCHAR(100)`,
	} {
		if !strings.Contains(sql, part) {
			t.Errorf("%q not in %s", part, sql)
		}
	}
	if strings.Contains(sql, "geom") {
		t.Errorf("geom column in create table %s", sql)
	}

	sql = spec.ForeignKeySQL()
	for _, part := range []string{
		`constraint_name = 'gyms_district_id_fk'`,
		`table_schema = 'berlin'`,
		`ALTER TABLE "berlin"."gyms"`,
		`REFERENCES "berlin"."districts"(district_id)`,
	} {
		if !strings.Contains(sql, part) {
			t.Errorf("%q not in %s", part, sql)
		}
	}

	if sql := spec.AddGeometrySQL(); sql != `ALTER TABLE "berlin"."gyms" ADD COLUMN IF NOT EXISTS geom geometry(Point, 4326)` {
		t.Error(sql)
	}
	if sql := spec.TruncateSQL(); sql != `TRUNCATE TABLE "berlin"."gyms"` {
		t.Error(sql)
	}
	if sql := spec.UpdateGeometrySQL(); !strings.Contains(sql, "ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)") {
		t.Error(sql)
	}
}

func TestQASQL(t *testing.T) {
	spec := gymsSpec()
	if sql := spec.countSQL("district_id IS NULL"); sql != `SELECT COUNT(*) FROM "berlin"."gyms" WHERE district_id IS NULL` {
		t.Error(sql)
	}
	if sql := spec.duplicateIDsSQL(); !strings.Contains(sql, `GROUP BY "gym_id" HAVING COUNT(*) > 1`) {
		t.Error(sql)
	}
	if sql := districtsSQL("berlin"); sql != `SELECT district_id, district FROM "berlin"."districts" ORDER BY district_id` {
		t.Error(sql)
	}
}

func TestRow(t *testing.T) {
	row := Row(element.Record{
		ID:         "55",
		Name:       "Unknown Gym",
		Address:    "Hauptstr 12",
		PostalCode: "10115",
		Point:      &element.Point{Long: 13.4, Lat: 52.52},
		DistrictID: "01",
		District:   "Mitte",
	})
	expected := []interface{}{"55", "01", "Unknown Gym", "Hauptstr 12", "10115", "", "",
		"POINT (13.4 52.52)", "52.52", "13.4", nil, "Mitte"}
	if !reflect.DeepEqual(row, expected) {
		t.Errorf("unexpected row %#v", row)
	}

	row = Row(element.Record{ID: "56"})
	if row[1] != nil || row[7] != nil || row[8] != nil || row[9] != nil || row[11] != nil {
		t.Errorf("expected NULL values, got %#v", row)
	}
	if len(row) != len(gymsSpec().Columns) {
		t.Errorf("row does not match columns %d != %d", len(row), len(gymsSpec().Columns))
	}
}

func TestDisableDefaultSsl(t *testing.T) {
	if _, ok := os.LookupEnv("PGSSLMODE"); ok {
		t.Skip("PGSSLMODE set")
	}
	for _, tc := range []struct {
		params   string
		expected string
	}{
		{"host=localhost dbname=berlin", "host=localhost dbname=berlin sslmode=disable"},
		{"host=localhost sslmode=require", "host=localhost sslmode=require"},
		{"host=db.example.org dbname=berlin", "host=db.example.org dbname=berlin"},
	} {
		if got := disableDefaultSslOnLocalhost(tc.params); got != tc.expected {
			t.Errorf("disableDefaultSslOnLocalhost(%q) = %q, expected %q", tc.params, got, tc.expected)
		}
	}
}
