package geojson

import (
	"bytes"
	"testing"

	"github.com/twpayne/go-geom"
)

func TestParsePolygon(t *testing.T) {
	r := bytes.NewBufferString(`{"type": "Polygon", "coordinates": [[[8, 50], [11, 50], [11, 53], [8, 50]]]}`)
	features, err := ParseGeoJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 1 {
		t.Fatal(features)
	}
	p, ok := features[0].Geometry.(*geom.Polygon)
	if !ok {
		t.Fatalf("unexpected geometry %T", features[0].Geometry)
	}
	if p.NumLinearRings() != 1 || p.LinearRing(0).NumCoords() != 4 {
		t.Fatal(p.Coords())
	}
}

func TestParseFeature(t *testing.T) {
	r := bytes.NewBufferString(`{"type": "Feature", "properties": {"name": "Mitte"}, "geometry": {
        "type": "MultiPolygon", "coordinates": [[[[8, 50], [11, 50], [11, 53], [8, 53], [8, 50]]]]
    }}`)
	features, err := ParseGeoJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 1 {
		t.Fatal(features)
	}
	if _, ok := features[0].Geometry.(*geom.MultiPolygon); !ok {
		t.Fatalf("unexpected geometry %T", features[0].Geometry)
	}
	if features[0].Properties["name"] != "Mitte" {
		t.Fatal(features[0].Properties)
	}
}

func TestParseFeatureCollection(t *testing.T) {
	r := bytes.NewBufferString(`{"type": "FeatureCollection", "features": [
        {"type": "Feature", "properties": {"foo": "bar", "baz": 42}, "geometry":
            {"type": "Polygon", "coordinates": [[[8, 50], [11, 50], [11, 53], [8, 53], [8, 50]]]}
        },
        {"type": "Feature", "properties": {}, "geometry":
            {"type": "Point", "coordinates": [8, 50]}
        }
    ]}`)
	features, err := ParseGeoJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 2 {
		t.Fatal(features)
	}
	if v, ok := features[0].Properties["foo"]; !ok || v != "bar" {
		t.Errorf("unexpected properties %v", features[0].Properties)
	}
	if v, ok := features[0].Properties["baz"]; !ok || v != 42.0 {
		t.Errorf("unexpected properties %v", features[0].Properties)
	}
	if _, ok := features[1].Geometry.(*geom.Point); !ok {
		t.Errorf("unexpected geometry %T", features[1].Geometry)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, doc := range []string{
		``,
		`{}`,
		`{"type": "Polygon", "coordinates": "foo"}`,
		`[1, 2]`,
	} {
		if _, err := ParseGeoJSON(bytes.NewBufferString(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestWriteFeatures(t *testing.T) {
	buf := &bytes.Buffer{}
	err := WriteFeatures(buf, []Feature{
		{geom.NewPointFlat(geom.XY, []float64{13.4, 52.52}), map[string]interface{}{"gym_id": "55"}},
		{nil, map[string]interface{}{"gym_id": "56"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	features, err := ParseGeoJSON(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	p, ok := features[0].Geometry.(*geom.Point)
	if !ok || p.X() != 13.4 || p.Y() != 52.52 {
		t.Errorf("unexpected geometry %v", features[0].Geometry)
	}
	if features[0].Properties["gym_id"] != "55" {
		t.Errorf("unexpected properties %v", features[0].Properties)
	}

	buf.Reset()
	if err := WriteFeatures(buf, nil); err != nil {
		t.Fatal(err)
	}
	features, err = ParseGeoJSON(buf)
	if err != nil || len(features) != 0 {
		t.Errorf("unexpected result %v %v", features, err)
	}
}
