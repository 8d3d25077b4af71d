// Package pipeline runs the normalize, join and reconcile stages on one
// feed snapshot.
package pipeline

import (
	"github.com/pkg/errors"

	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/geom/layer"
	"github.com/berlinopendata/poisync/join"
	"github.com/berlinopendata/poisync/logging"
	"github.com/berlinopendata/poisync/mapping"
	"github.com/berlinopendata/poisync/normalize"
	"github.com/berlinopendata/poisync/reader"
	"github.com/berlinopendata/poisync/reconcile"
)

var log = logging.NewLogger("pipeline")

// Layers are the polygon layers of a run. Both are read-only.
type Layers struct {
	Districts     *layer.Layer
	Neighborhoods *layer.Layer
}

type Result struct {
	// Joined contains all normalized records after the spatial join,
	// DistrictID is still the key of the district polygon.
	Joined []element.Record
	// Final contains only records with a reconciled DistrictID.
	Final []element.Record

	Normalize normalize.Stats
	Join      join.Stats
	Reconcile reconcile.Stats
}

// Run processes all rows of a snapshot. Run has no side effects
// besides logging and returns the same result for the same input.
func Run(rows []reader.Row, feed *mapping.Feed, layers Layers, resolver *reconcile.Resolver) (*Result, error) {
	if feed == nil {
		return nil, errors.New("missing feed")
	}
	if layers.Districts == nil {
		return nil, errors.New("missing district layer")
	}
	if resolver == nil {
		return nil, errors.New("missing district resolver")
	}

	res := &Result{}
	res.Joined, res.Normalize = normalize.Normalize(rows, feed)
	log.Printf("%s: %d records from %d rows, %d without id, %d without coordinates",
		feed.Name, len(res.Joined), res.Normalize.Rows, res.Normalize.MissingID, res.Normalize.NoPoint)

	res.Join = join.Join(res.Joined, layers.Districts, layers.Neighborhoods)
	log.Printf("%s: %d of %d located records in a district, %d in a neighborhood",
		feed.Name, res.Join.District, res.Join.Tested, res.Join.Neighborhood)

	res.Final, res.Reconcile = reconcile.Reconcile(res.Joined, resolver)
	log.Printf("%s: %d records reconciled, %d without district, %d with unknown district",
		feed.Name, res.Reconcile.Matched, res.Reconcile.NoDistrict, res.Reconcile.Unmatched)

	return res, nil
}
