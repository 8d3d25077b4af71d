package mapping

import (
	"github.com/berlinopendata/poisync/element"
)

// AnyValue matches every value of a tag key.
const AnyValue = Value("__any__")

// TagFilter matches OSM elements against the tags of a feed.
type TagFilter struct {
	mappings map[Key]map[Value]struct{}
}

func (f *Feed) TagFilter() *TagFilter {
	mappings := make(map[Key]map[Value]struct{})
	for key, vals := range f.Tags {
		if _, ok := mappings[key]; !ok {
			mappings[key] = make(map[Value]struct{})
		}
		for _, v := range vals {
			mappings[key][v] = struct{}{}
		}
	}
	return &TagFilter{mappings}
}

// Match returns true if any tag of the element is part of the feed.
func (f *TagFilter) Match(tags element.Tags) bool {
	for k, v := range tags {
		values, ok := f.mappings[Key(k)]
		if !ok {
			continue
		}
		if _, ok := values[AnyValue]; ok {
			return true
		}
		if _, ok := values[Value(v)]; ok {
			return true
		}
	}
	return false
}

// Empty returns true if the filter matches nothing.
func (f *TagFilter) Empty() bool {
	return len(f.mappings) == 0
}
