package mapping

import (
	"io/ioutil"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Key string
type Value string

// Columns maps the canonical source fields to the column names of a
// tabular feed export.
type Columns struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Street      string `yaml:"street"`
	HouseNumber string `yaml:"housenumber"`
	Postcode    string `yaml:"postcode"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`
	Latitude    string `yaml:"latitude"`
	Longitude   string `yaml:"longitude"`
}

// Canonical returns the source column name for each canonical field name.
func (c Columns) Canonical() map[string]string {
	return map[string]string{
		"id":          c.ID,
		"name":        c.Name,
		"street":      c.Street,
		"housenumber": c.HouseNumber,
		"postcode":    c.Postcode,
		"phone":       c.Phone,
		"email":       c.Email,
		"latitude":    c.Latitude,
		"longitude":   c.Longitude,
	}
}

// Table describes the destination table of a feed.
type Table struct {
	Name     string `yaml:"name"`
	IDColumn string `yaml:"id_column"`
	// Load is false for feeds that only produce derived files.
	Load bool `yaml:"load"`
}

type Feed struct {
	Name        string
	FilePrefix  string            `yaml:"file_prefix"`
	DefaultName string            `yaml:"default_name"`
	Table       Table             `yaml:"table"`
	Columns     Columns           `yaml:"columns"`
	Tags        map[Key][]Value   `yaml:"tags"`
	TagColumns  map[string]string `yaml:"tag_columns"`
}

type Feeds map[string]*Feed

type Mapping struct {
	Feeds Feeds `yaml:"feeds"`
}

// NewMapping reads a YAML mapping file.
func NewMapping(filename string) (*Mapping, error) {
	f, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "reading mapping")
	}
	return NewMappingFromBytes(f)
}

func NewMappingFromBytes(b []byte) (*Mapping, error) {
	mapping := Mapping{}
	if err := yaml.Unmarshal(b, &mapping); err != nil {
		return nil, errors.Wrap(err, "parsing mapping")
	}
	if err := mapping.prepare(); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// Feed returns the named feed.
func (m *Mapping) Feed(name string) (*Feed, error) {
	f, ok := m.Feeds[name]
	if !ok {
		return nil, errors.Errorf("unknown feed %q, available: %v", name, m.FeedNames())
	}
	return f, nil
}

func (m *Mapping) FeedNames() []string {
	names := make([]string, 0, len(m.Feeds))
	for name := range m.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Mapping) prepare() error {
	if len(m.Feeds) == 0 {
		return errors.New("mapping contains no feeds")
	}
	for name, f := range m.Feeds {
		if f == nil {
			return errors.Errorf("feed %q is empty", name)
		}
		f.Name = name
		if f.FilePrefix == "" {
			f.FilePrefix = name + "_osm_berlin_"
		}
		if f.Table.Name == "" {
			f.Table.Name = name
		}
		if f.Table.IDColumn == "" {
			f.Table.IDColumn = "id"
		}
		f.Columns = f.Columns.withDefaults()
		if f.TagColumns == nil {
			f.TagColumns = defaultTagColumns()
		}
	}
	return nil
}

func (c Columns) withDefaults() Columns {
	def := func(v *string, name string) {
		if *v == "" {
			*v = name
		}
	}
	def(&c.ID, "osm_id")
	def(&c.Name, "name")
	def(&c.Street, "street")
	def(&c.HouseNumber, "housenumber")
	def(&c.Postcode, "postcode")
	def(&c.Phone, "phone")
	def(&c.Email, "email")
	def(&c.Latitude, "latitude")
	def(&c.Longitude, "longitude")
	return c
}

// defaultTagColumns maps OSM tag keys to canonical fields for PBF input.
func defaultTagColumns() map[string]string {
	return map[string]string{
		"name":             "name",
		"addr:street":      "street",
		"addr:housenumber": "housenumber",
		"addr:postcode":    "postcode",
		"phone":            "phone",
		"contact:phone":    "phone",
		"email":            "email",
		"contact:email":    "email",
	}
}

// DefaultMapping contains the Berlin gyms, playgrounds and parks feeds.
const DefaultMapping = `
feeds:
  gyms:
    file_prefix: gyms_osm_berlin_
    default_name: Unknown Gym
    table:
      name: gyms
      id_column: gym_id
      load: true
    tags:
      leisure: [fitness_centre, sports_centre]
  playgrounds:
    file_prefix: playgrounds_osm_berlin_
    table:
      name: playgrounds
      id_column: playground_id
    columns:
      housenumber: house_number
    tags:
      leisure: [playground]
  parks:
    file_prefix: parks_osm_berlin_
    table:
      name: parks
      id_column: park_id
    columns:
      housenumber: house_number
    tags:
      leisure: [park, garden, nature_reserve]
      landuse: [recreation_ground]
      boundary: [national_park]
`

func Default() *Mapping {
	m, err := NewMappingFromBytes([]byte(DefaultMapping))
	if err != nil {
		panic(err)
	}
	return m
}
