// Package join assigns point records to the district and neighborhood
// polygons that contain them.
package join

import (
	"github.com/berlinopendata/poisync/element"
	"github.com/berlinopendata/poisync/geom/layer"
)

type Stats struct {
	Tested       int
	NoPoint      int
	District     int
	Neighborhood int
}

// Join sets District, DistrictID and Neighborhood of all records in
// place. Records without a point are not tested. The district and
// neighborhood layers are queried independently, so a record can match
// one without the other. DistrictID is the key of the district polygon
// and only valid until reconciliation. A nil layer matches nothing.
func Join(recs []element.Record, districts, neighborhoods *layer.Layer) Stats {
	stats := Stats{}
	for i := range recs {
		rec := &recs[i]
		rec.District, rec.DistrictID, rec.Neighborhood = "", "", ""
		if rec.Point == nil {
			stats.NoPoint++
			continue
		}
		stats.Tested++
		if districts != nil {
			if p, ok := districts.Locate(*rec.Point); ok {
				rec.District = p.Name
				rec.DistrictID = p.Key
				stats.District++
			}
		}
		if neighborhoods != nil {
			if p, ok := neighborhoods.Locate(*rec.Point); ok {
				rec.Neighborhood = p.Name
				stats.Neighborhood++
			}
		}
	}
	return stats
}
