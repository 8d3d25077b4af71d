package reader

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"

	osm "github.com/omniscale/go-osm"
	"github.com/omniscale/go-osm/parser/pbf"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/mapping"
)

// ReadPBF reads all nodes and closed ways from an OSM PBF extract that
// match the tags of the feed. Ways are located at the centroid of
// their area. Way IDs are negative, so that node and way IDs share one
// ID space. Rows are ordered by their numeric ID.
//
// Ways only reference their nodes, so a second pass over the extract
// collects the coordinates of all referenced nodes.
func ReadPBF(ctx context.Context, r io.ReadSeeker, feed *mapping.Feed) ([]Row, error) {
	filter := feed.TagFilter()
	if filter.Empty() {
		return nil, errors.Errorf("feed %s has no tags to filter PBF elements", feed.Name)
	}

	var found []osmRow
	var ways []osm.Way

	nodes := make(chan []osm.Node, 4)
	wayc := make(chan []osm.Way, 4)
	stop := make(chan struct{})
	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case nds, ok := <-nodes:
				if !ok {
					return
				}
				for _, nd := range nds {
					if len(nd.Tags) == 0 || !filter.Match(element.Tags(nd.Tags)) {
						continue
					}
					row := rowFromTags(nd.Tags, feed.TagColumns)
					row.Latitude = element.FormatFloat(nd.Lat)
					row.Longitude = element.FormatFloat(nd.Long)
					found = append(found, osmRow{nd.ID, row})
				}
			case <-stop:
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case ws, ok := <-wayc:
				if !ok {
					return
				}
				for _, w := range ws {
					if !w.IsClosed() || !filter.Match(element.Tags(w.Tags)) {
						continue
					}
					ways = append(ways, w)
				}
			case <-stop:
				return
			}
		}
	}()

	p := pbf.New(r, pbf.Config{
		Nodes: nodes,
		Ways:  wayc,
	})
	if err := p.Parse(ctx); err != nil {
		close(stop)
		wg.Wait()
		go discardNodes(nodes)
		go discardWays(wayc)
		return nil, errors.Wrap(err, "parsing nodes and ways")
	}
	wg.Wait()

	if len(ways) > 0 {
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "rewinding extract")
		}
		coords, err := readCoords(ctx, r, ways)
		if err != nil {
			return nil, err
		}
		for _, w := range ways {
			row := rowFromTags(w.Tags, feed.TagColumns)
			c, err := wayCentroid(w.Refs, coords)
			if err != nil {
				log.Warnf("way %d: %s", w.ID, err)
			} else {
				row.Longitude = element.FormatFloat(c.X())
				row.Latitude = element.FormatFloat(c.Y())
			}
			found = append(found, osmRow{-w.ID, row})
		}
	}

	// parser returns elements in block order of the concurrent workers
	sort.SliceStable(found, func(i, j int) bool { return found[i].id < found[j].id })
	rows := make([]Row, len(found))
	for i, f := range found {
		rows[i] = f.row
		rows[i].ID = strconv.FormatInt(f.id, 10)
	}
	return rows, nil
}

type osmRow struct {
	id  int64
	row Row
}

// readCoords returns the coordinates of all nodes referenced by ways.
func readCoords(ctx context.Context, r io.Reader, ways []osm.Way) (map[int64]element.Point, error) {
	needed := make(map[int64]struct{})
	for _, w := range ways {
		for _, ref := range w.Refs {
			needed[ref] = struct{}{}
		}
	}

	coords := make(map[int64]element.Point, len(needed))
	nodes := make(chan []osm.Node, 4)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case nds, ok := <-nodes:
				if !ok {
					return
				}
				for _, nd := range nds {
					if _, ok := needed[nd.ID]; ok {
						coords[nd.ID] = element.Point{Long: nd.Long, Lat: nd.Lat}
					}
				}
			case <-stop:
				return
			}
		}
	}()

	p := pbf.New(r, pbf.Config{Nodes: nodes})
	if err := p.Parse(ctx); err != nil {
		close(stop)
		<-done
		go discardNodes(nodes)
		return nil, errors.Wrap(err, "parsing way coordinates")
	}
	<-done
	return coords, nil
}

// discardNodes and discardWays receive from the parser channels after
// Parse failed. The parser does not close its channels in that case,
// but its workers can still send the elements of their current block.
func discardNodes(c <-chan []osm.Node) {
	for range c {
	}
}

func discardWays(c <-chan []osm.Way) {
	for range c {
	}
}

func wayCentroid(refs []int64, coords map[int64]element.Point) (geom.Coord, error) {
	ring := make([]geom.Coord, 0, len(refs))
	for _, ref := range refs {
		p, ok := coords[ref]
		if !ok {
			return nil, errors.Errorf("missing node %d", ref)
		}
		ring = append(ring, geom.Coord{p.Long, p.Lat})
	}
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil, errors.Wrap(err, "building polygon")
	}
	return xy.Centroid(poly)
}

// rowFromTags fills the row from the OSM tags. Tags are visited in
// sorted order, the first non-empty tag for each field wins.
func rowFromTags(tags osm.Tags, tagColumns map[string]string) Row {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	row := Row{}
	for _, k := range keys {
		field, ok := tagColumns[k]
		if !ok || tags[k] == "" {
			continue
		}
		var dst *string
		switch field {
		case "name":
			dst = &row.Name
		case "street":
			dst = &row.Street
		case "housenumber":
			dst = &row.HouseNumber
		case "postcode":
			dst = &row.Postcode
		case "phone":
			dst = &row.Phone
		case "email":
			dst = &row.Email
		default:
			continue
		}
		if *dst == "" {
			*dst = tags[k]
		}
	}
	return row
}
