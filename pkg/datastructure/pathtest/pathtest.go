// Package pathtest builds synthetic paths for tests.
package pathtest

import (
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
)

// Step is 0.001 degree of longitude, about 111.19 m on the equator.
const Step = 0.001

// Leg. Points segments heading east, ending at a waypoint. Turns lists the point offsets (within
// the leg) where an extra maneuver instruction starts.
type Leg struct {
	Points int
	Turns  []int
}

// East builds a path along the equator starting at lon0. Every leg ends with REACHED_VIA, the
// last one with FINISH. avgSpeed (km/h) is attached as average_speed detail over the whole path.
func East(lon0 float64, avgSpeed float64, legs ...Leg) *datastructure.Path {
	points := []geo.Coordinate{geo.NewCoordinate(0, lon0)}
	waypoints := []geo.Coordinate{points[0]}
	instructions := make([]datastructure.Instruction, 0)

	start := 0
	for l, leg := range legs {
		bounds := append([]int{0}, leg.Turns...)
		bounds = append(bounds, leg.Points)
		for i := 1; i <= leg.Points; i++ {
			points = append(points, geo.NewCoordinate(0, lon0+float64(start+i)*Step))
		}
		for b := 0; b+1 < len(bounds); b++ {
			from, to := start+bounds[b], start+bounds[b+1]
			sign := datastructure.CONTINUE_ON_STREET
			text := "Continue"
			switch {
			case b == 0 && l > 0:
				sign, text = datastructure.REACHED_VIA, "Arrive at waypoint"
			case b > 0:
				sign, text = datastructure.TURN_LEFT, "Turn left"
			}
			instructions = append(instructions, segmentInstruction(points, sign, text, from, to, avgSpeed))
		}
		start += leg.Points
		waypoints = append(waypoints, points[start])
	}
	instructions = append(instructions, datastructure.NewInstruction(datastructure.FINISH, "Arrive at destination",
		"", start, start, 0, 0))

	details := datastructure.PathDetails{
		AverageSpeed: []datastructure.Detail[float64]{datastructure.NewDetail(0, start, avgSpeed)},
		RoadClass:    []datastructure.Detail[string]{datastructure.NewDetail(0, start, "primary")},
	}

	var dist, ms float64
	for i := range instructions {
		dist += instructions[i].GetDistance()
		ms += instructions[i].GetTime()
	}
	return datastructure.NewPath(points, waypoints, instructions, details, dist, ms)
}

func segmentInstruction(points []geo.Coordinate, sign int, text string, from, to int, avgSpeed float64) datastructure.Instruction {
	d := 0.0
	for i := from; i < to; i++ {
		d += geo.Distance(points[i], points[i+1])
	}
	ms := 0.0
	if avgSpeed > 0 {
		ms = d / (avgSpeed / 3.6) * 1000
	}
	return datastructure.NewInstruction(sign, text, "", from, to, d, ms)
}

// At returns the coordinate offset points along the equator from lon0, north meters off the line.
func At(lon0 float64, offset float64, north float64) geo.Coordinate {
	return geo.Offset(geo.NewCoordinate(0, lon0+offset*Step), north, 0)
}
