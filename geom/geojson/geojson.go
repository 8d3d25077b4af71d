package geojson

import (
	"encoding/json"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type Feature struct {
	Geometry   geom.T
	Properties map[string]interface{}
}

// ParseGeoJSON reads all features from a FeatureCollection, a single
// Feature or a plain geometry object.
func ParseGeoJSON(r io.Reader) ([]Feature, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	obj := struct {
		Type string `json:"type"`
	}{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Wrap(err, "parsing geojson")
	}

	switch obj.Type {
	case "FeatureCollection":
		fc := geojson.FeatureCollection{}
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, errors.Wrap(err, "parsing feature collection")
		}
		features := make([]Feature, 0, len(fc.Features))
		for _, f := range fc.Features {
			features = append(features, Feature{f.Geometry, f.Properties})
		}
		return features, nil
	case "Feature":
		f := geojson.Feature{}
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, errors.Wrap(err, "parsing feature")
		}
		return []Feature{{f.Geometry, f.Properties}}, nil
	case "":
		return nil, errors.New("missing geojson type")
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, errors.Wrap(err, "parsing geometry")
		}
		return []Feature{{Geometry: g}}, nil
	}
}

// WriteFeatures writes a FeatureCollection. Features without geometry
// are skipped.
func WriteFeatures(w io.Writer, features []Feature) error {
	fc := geojson.FeatureCollection{}
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return errors.Wrap(err, "encoding geojson")
	}
	_, err = w.Write(data)
	return err
}
