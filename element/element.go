package element

import (
	"math"
	"strconv"
	"strings"
)

type Tags map[string]string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Long float64 `json:"lon"`
	Lat  float64 `json:"lat"`
}

// Record is a single point of interest. DistrictID, District and
// Neighborhood are empty until the record passed the join and
// reconcile stages. Point is nil when the source had no usable
// coordinates.
type Record struct {
	ID           string
	Name         string
	Address      string
	PostalCode   string
	Phone        string
	Email        string
	Point        *Point
	DistrictID   string
	District     string
	Neighborhood string
}

// Coordinates returns the record location as WKT point, longitude first.
func (r *Record) Coordinates() (string, bool) {
	if r.Point == nil {
		return "", false
	}
	return "POINT (" + FormatFloat(r.Point.Long) + " " + FormatFloat(r.Point.Lat) + ")", true
}

// FormatFloat formats f with the fewest digits that represent it exactly.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// maxExactInt is the largest integer a float64 can hold without gaps.
const maxExactInt = 1 << 53

// CleanID converts numeric ids that went through a float representation
// back to their integer text ("123.0" -> "123"). Other values are
// returned trimmed but otherwise unchanged.
func CleanID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return id
	}
	if !looksNumeric(id) {
		return id
	}
	f, err := strconv.ParseFloat(id, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return id
	}
	if f != math.Trunc(f) || math.Abs(f) > maxExactInt {
		return id
	}
	return strconv.FormatInt(int64(f), 10)
}

// looksNumeric excludes values like "Inf" or "0x10" that ParseFloat
// would accept.
func looksNumeric(s string) bool {
	for i, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == 'e' || c == 'E':
		case (c == '-' || c == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		default:
			return false
		}
	}
	return true
}
