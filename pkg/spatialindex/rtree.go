package spatialindex

import (
	"math"

	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/tidwall/rtree"
)

// SegmentIndex is an r-tree over the segments (points[i], points[i+1]) of a polyline.
// Every leaf stores the index i of the first segment point.
type SegmentIndex struct {
	tr     *rtree.RTreeG[int]
	points []geo.Coordinate
}

// NewSegmentIndex. build r-tree over the consecutive segments of points
func NewSegmentIndex(points []geo.Coordinate) *SegmentIndex {
	var tr rtree.RTreeG[int]
	for i := 0; i+1 < len(points); i++ {
		from, to := points[i], points[i+1]
		minLat := math.Min(from.Lat, to.Lat)
		minLon := math.Min(from.Lon, to.Lon)
		maxLat := math.Max(from.Lat, to.Lat)
		maxLon := math.Max(from.Lon, to.Lon)

		tr.Insert([2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}, i)
	}
	return &SegmentIndex{
		tr:     &tr,
		points: points,
	}
}

func (si *SegmentIndex) Len() int {
	return si.tr.Len()
}

// SearchWithinRadius search for the segments whose bounding box intersects the square box
// spanned by the corners radius (in km) away from (qLat, qLon) at bearings 225° and 45°.
// Every segment closer than radius/sqrt(2) is guaranteed to be returned.
func (si *SegmentIndex) SearchWithinRadius(qLat, qLon, radius float64) []int {
	lowerLat, lowerLon := geo.GetDestinationPoint(qLat, qLon, 225, radius)
	upperLat, upperLon := geo.GetDestinationPoint(qLat, qLon, 45, radius)

	results := make([]int, 0, 10)
	si.tr.Search([2]float64{lowerLon, lowerLat}, [2]float64{upperLon, upperLat},
		func(min, max [2]float64, data int) bool {
			results = append(results, data)
			return true
		})
	return results
}

// Nearest returns the segment closest to q and its perpendicular distance in meter. The r-tree
// answers when a segment lies within the guaranteed radius, otherwise all segments are scanned.
// ok is false for polylines with fewer than two points.
func (si *SegmentIndex) Nearest(q geo.Coordinate, radius float64) (segment int, dist float64, ok bool) {
	if len(si.points) < 2 {
		return -1, -1, false
	}

	segment, dist = -1, math.MaxFloat64
	for _, i := range si.SearchWithinRadius(q.Lat, q.Lon, radius) {
		d := geo.PointLinePerpendicularDistance(si.points[i], si.points[i+1], q)
		if d < dist || (d == dist && i < segment) {
			segment, dist = i, d
		}
	}
	if segment >= 0 && dist <= radius*1000/math.Sqrt2 {
		return segment, dist, true
	}

	segment, dist = -1, math.MaxFloat64
	for i := 0; i+1 < len(si.points); i++ {
		d := geo.PointLinePerpendicularDistance(si.points[i], si.points[i+1], q)
		if d < dist {
			segment, dist = i, d
		}
	}
	return segment, dist, true
}
