package layer

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/geom/geojson"
	"github.com/berlinopendata/poisync/logging"
)

var log = logging.NewLogger("layer")

// Policy defines how Locate handles points inside of more than one
// polygon (overlapping or duplicate boundaries).
type Policy int

const (
	// Smallest selects the containing polygon with the smallest area.
	// Polygons with equal area are ordered by name and key.
	Smallest Policy = iota
	// Reject returns no match for points in more than one polygon.
	Reject
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "smallest":
		return Smallest, nil
	case "reject":
		return Reject, nil
	}
	return Smallest, errors.Errorf("unknown policy %q, expected smallest or reject", s)
}

func (p Policy) String() string {
	if p == Reject {
		return "reject"
	}
	return "smallest"
}

type Polygon struct {
	Name string
	Key  string
	// Geom is a *geom.Polygon or *geom.MultiPolygon.
	Geom   geom.T
	Area   float64
	bounds *geom.Bounds
}

func NewPolygon(name, key string, g geom.T) (*Polygon, error) {
	var area float64
	switch g := g.(type) {
	case *geom.Polygon:
		if g.NumLinearRings() == 0 {
			return nil, errors.New("empty polygon")
		}
		area = g.Area()
	case *geom.MultiPolygon:
		if g.NumPolygons() == 0 {
			return nil, errors.New("empty multipolygon")
		}
		area = g.Area()
	default:
		return nil, errors.Errorf("unsupported geometry type %T", g)
	}
	return &Polygon{Name: name, Key: key, Geom: g, Area: area, bounds: g.Bounds()}, nil
}

// Contains returns true if the point is inside the polygon. Points on
// the boundary of the polygon or its holes are not contained.
func (p *Polygon) Contains(pt element.Point) bool {
	if pt.Long < p.bounds.Min(0) || pt.Long > p.bounds.Max(0) ||
		pt.Lat < p.bounds.Min(1) || pt.Lat > p.bounds.Max(1) {
		return false
	}
	c := geom.Coord{pt.Long, pt.Lat}
	switch g := p.Geom.(type) {
	case *geom.Polygon:
		return polygonContains(g, c)
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), c) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}
	layout := p.Layout()
	if xy.LocatePointInRing(layout, c, p.LinearRing(0).FlatCoords()) != location.Interior {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.LocatePointInRing(layout, c, p.LinearRing(i).FlatCoords()) != location.Exterior {
			return false
		}
	}
	return true
}

// Layer is an immutable set of polygons, like all districts of a city.
type Layer struct {
	Name     string
	Polygons []*Polygon
	Policy   Policy
	index    *gridIndex
}

func New(name string, polygons []*Polygon, policy Policy) *Layer {
	return &Layer{
		Name:     name,
		Polygons: polygons,
		Policy:   policy,
		index:    newGridIndex(polygons),
	}
}

// Locate returns the polygon that contains the point.
func (l *Layer) Locate(pt element.Point) (*Polygon, bool) {
	var hits []*Polygon
	for _, idx := range l.index.query(pt.Long, pt.Lat) {
		if p := l.Polygons[idx]; p.Contains(pt) {
			hits = append(hits, p)
		}
	}
	switch {
	case len(hits) == 0:
		return nil, false
	case len(hits) == 1:
		return hits[0], true
	case l.Policy == Reject:
		log.Debugf("%s: point %v in %d polygons, no match", l.Name, pt, len(hits))
		return nil, false
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Area != hits[j].Area {
			return hits[i].Area < hits[j].Area
		}
		if hits[i].Name != hits[j].Name {
			return hits[i].Name < hits[j].Name
		}
		return hits[i].Key < hits[j].Key
	})
	log.Debugf("%s: point %v in %d polygons, using %s", l.Name, pt, len(hits), hits[0].Name)
	return hits[0], true
}

// FromGeoJSON reads all polygonal features. The polygon name and key
// are taken from the nameAttr and keyAttr properties. Features without
// polygonal geometry or name are skipped. keyAttr is optional.
func FromGeoJSON(r io.Reader, name, nameAttr, keyAttr string, policy Policy) (*Layer, error) {
	features, err := geojson.ParseGeoJSON(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading layer %s", name)
	}
	var polygons []*Polygon
	for i, f := range features {
		polyName := property(f.Properties, nameAttr)
		if polyName == "" {
			log.Warnf("%s: feature %d without %s, skipping", name, i, nameAttr)
			continue
		}
		key := ""
		if keyAttr != "" {
			key = element.CleanID(property(f.Properties, keyAttr))
		}
		p, err := NewPolygon(polyName, key, f.Geometry)
		if err != nil {
			log.Warnf("%s: feature %d (%s): %s, skipping", name, i, polyName, err)
			continue
		}
		polygons = append(polygons, p)
	}
	if len(polygons) == 0 {
		return nil, errors.Errorf("layer %s contains no polygons", name)
	}
	return New(name, polygons, policy), nil
}

func property(props map[string]interface{}, attr string) string {
	v, ok := props[attr]
	if !ok || v == nil {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return element.FormatFloat(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// gridIndex assigns polygons to all cells of a regular grid that
// their bounds overlap.
type gridIndex struct {
	minX, minY   float64
	cellW, cellH float64
	nx, ny       int
	cells        [][]int
}

const gridSize = 64

func newGridIndex(polygons []*Polygon) *gridIndex {
	idx := &gridIndex{}
	if len(polygons) == 0 {
		return idx
	}
	bounds := geom.NewBounds(geom.XY)
	for _, p := range polygons {
		bounds.Extend(p.Geom)
	}
	idx.minX, idx.minY = bounds.Min(0), bounds.Min(1)
	idx.nx, idx.ny = gridSize, gridSize
	idx.cellW = (bounds.Max(0) - idx.minX) / gridSize
	idx.cellH = (bounds.Max(1) - idx.minY) / gridSize
	if idx.cellW <= 0 {
		idx.cellW, idx.nx = 1, 1
	}
	if idx.cellH <= 0 {
		idx.cellH, idx.ny = 1, 1
	}
	idx.cells = make([][]int, idx.nx*idx.ny)
	for i, p := range polygons {
		x0, y0 := idx.cell(p.bounds.Min(0), p.bounds.Min(1))
		x1, y1 := idx.cell(p.bounds.Max(0), p.bounds.Max(1))
		for x := x0; x <= x1; x++ {
			for y := y0; y <= y1; y++ {
				idx.cells[y*idx.nx+x] = append(idx.cells[y*idx.nx+x], i)
			}
		}
	}
	return idx
}

func (idx *gridIndex) cell(x, y float64) (int, int) {
	cx := int(math.Floor((x - idx.minX) / idx.cellW))
	cy := int(math.Floor((y - idx.minY) / idx.cellH))
	return clamp(cx, idx.nx), clamp(cy, idx.ny)
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

func (idx *gridIndex) query(x, y float64) []int {
	if len(idx.cells) == 0 {
		return nil
	}
	cx := math.Floor((x - idx.minX) / idx.cellW)
	cy := math.Floor((y - idx.minY) / idx.cellH)
	// points on the max edge belong to the last cell
	if cx == float64(idx.nx) {
		cx--
	}
	if cy == float64(idx.ny) {
		cy--
	}
	if cx < 0 || cy < 0 || cx >= float64(idx.nx) || cy >= float64(idx.ny) {
		return nil
	}
	return idx.cells[int(cy)*idx.nx+int(cx)]
}
