package mapping

import (
	"testing"

	"github.com/berlinopendata/poisync/element"
)

func TestDefaultMapping(t *testing.T) {
	m := Default()
	if names := m.FeedNames(); len(names) != 3 || names[0] != "gyms" || names[1] != "parks" || names[2] != "playgrounds" {
		t.Fatalf("unexpected feeds %v", names)
	}

	gyms, err := m.Feed("gyms")
	if err != nil {
		t.Fatal(err)
	}
	if gyms.DefaultName != "Unknown Gym" {
		t.Errorf("unexpected default name %q", gyms.DefaultName)
	}
	if gyms.Table.Name != "gyms" || gyms.Table.IDColumn != "gym_id" || !gyms.Table.Load {
		t.Errorf("unexpected table %+v", gyms.Table)
	}
	if gyms.Columns.ID != "osm_id" || gyms.Columns.HouseNumber != "housenumber" {
		t.Errorf("unexpected columns %+v", gyms.Columns)
	}

	parks, _ := m.Feed("parks")
	if parks.Table.Load {
		t.Error("parks should not load into the database")
	}
	if parks.Columns.HouseNumber != "house_number" {
		t.Errorf("unexpected columns %+v", parks.Columns)
	}

	if _, err := m.Feed("pools"); err == nil {
		t.Error("expected error for unknown feed")
	}
}

func TestMappingDefaults(t *testing.T) {
	m, err := NewMappingFromBytes([]byte(`
feeds:
  benches:
    columns:
      id: "@id"
`))
	if err != nil {
		t.Fatal(err)
	}
	f := m.Feeds["benches"]
	if f.Name != "benches" || f.FilePrefix != "benches_osm_berlin_" {
		t.Errorf("unexpected feed %+v", f)
	}
	if f.Table.Name != "benches" || f.Table.IDColumn != "id" || f.Table.Load {
		t.Errorf("unexpected table %+v", f.Table)
	}
	if f.Columns.ID != "@id" || f.Columns.Latitude != "latitude" {
		t.Errorf("unexpected columns %+v", f.Columns)
	}
	if f.TagColumns["addr:street"] != "street" {
		t.Errorf("unexpected tag columns %v", f.TagColumns)
	}
}

func TestMappingErrors(t *testing.T) {
	for _, doc := range []string{
		`feeds: {}`,
		`feeds: [a, b]`,
		"feeds:\n  gyms:\n",
	} {
		if _, err := NewMappingFromBytes([]byte(doc)); err == nil {
			t.Errorf("expected error for %q", doc)
		}
	}
}

func TestTagFilter(t *testing.T) {
	m, err := NewMappingFromBytes([]byte(`
feeds:
  parks:
    tags:
      leisure: [park, garden]
      boundary: [__any__]
`))
	if err != nil {
		t.Fatal(err)
	}
	filter := m.Feeds["parks"].TagFilter()

	for _, tags := range []element.Tags{
		{"leisure": "park"},
		{"leisure": "garden", "name": "Tiergarten"},
		{"boundary": "national_park"},
		{"boundary": "anything"},
	} {
		if !filter.Match(tags) {
			t.Errorf("expected match for %v", tags)
		}
	}
	for _, tags := range []element.Tags{
		{"leisure": "playground"},
		{"amenity": "park"},
		{},
	} {
		if filter.Match(tags) {
			t.Errorf("unexpected match for %v", tags)
		}
	}

	empty := (&Feed{}).TagFilter()
	if !empty.Empty() || empty.Match(element.Tags{"leisure": "park"}) {
		t.Error("empty filter should match nothing")
	}
}
