package report

import (
	"log"

	"github.com/golang/geo/s2"

	"crashwrangle/internal/table"
)

// NYCBounds is a generous box around the five boroughs.
var NYCBounds = s2.RectFromLatLng(s2.LatLngFromDegrees(40.40, -74.30)).
	AddPoint(s2.LatLngFromDegrees(41.00, -73.65))

// GeoReport counts suspicious coordinates. Checked excludes rows with a
// non-numeric latitude or longitude.
type GeoReport struct {
	Checked   int
	Invalid   int // outside [-90,90] x [-180,180]
	NullIsland int // exactly (0, 0)
	OutOfArea int // valid, not (0,0), but outside Bounds
}

// GeoCheck inspects coordinate pairs. It is advisory: rows are never
// changed or dropped.
type GeoCheck struct {
	Lat, Lng string
	Bounds   s2.Rect
}

// Check scans t. Missing columns yield an empty report.
func (g GeoCheck) Check(t *table.Table) GeoReport {
	var rep GeoReport
	li, ok1 := t.Index(g.Lat)
	gi, ok2 := t.Index(g.Lng)
	if !ok1 || !ok2 {
		return rep
	}
	bounds := g.Bounds
	if bounds.IsEmpty() {
		bounds = s2.FullRect()
	}
	for _, r := range t.Rows {
		lat, okLat := r[li].Number()
		lng, okLng := r[gi].Number()
		if !okLat || !okLng {
			continue
		}
		rep.Checked++
		ll := s2.LatLngFromDegrees(lat, lng)
		switch {
		case !ll.IsValid():
			rep.Invalid++
		case lat == 0 && lng == 0:
			rep.NullIsland++
		case !bounds.ContainsLatLng(ll):
			rep.OutOfArea++
		}
	}
	return rep
}

// Log writes the report when anything looks off.
func (r GeoReport) Log() {
	if r.Invalid+r.NullIsland+r.OutOfArea == 0 {
		return
	}
	log.Printf("geocheck: WARN checked=%d invalid=%d null_island=%d out_of_area=%d",
		r.Checked, r.Invalid, r.NullIsland, r.OutOfArea)
}
