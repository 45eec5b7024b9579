package guidance

import (
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
)

// searchRadius (km) of the r-tree query around a fix before falling back to a full scan
const searchRadius = 0.5

// Projection. result of snapping a fix onto a path. Index is the instruction the traveler is heading
// to (the next maneuver), -1 when the fix could not be placed on the path. Distances in meter,
// times in millisecond.
type Projection struct {
	Index              int
	PointIndex         int
	DistanceToTurn     float64
	TimeToTurn         float64
	DistanceToEnd      float64
	TimeToEnd          float64
	NextWaypointIndex  int
	DistanceToWaypoint float64
	DistanceToRoute    float64
	Snapped            geo.Coordinate
}

// InvalidProjection. placeholder for a fix that could not be placed on the path
func InvalidProjection() Projection {
	return Projection{
		Index:              -1,
		PointIndex:         -1,
		DistanceToTurn:     -1,
		TimeToTurn:         -1,
		DistanceToEnd:      -1,
		TimeToEnd:          -1,
		NextWaypointIndex:  -1,
		DistanceToWaypoint: -1,
		DistanceToRoute:    -1,
	}
}

func (p Projection) Valid() bool {
	return p.Index >= 0
}

// CurrentInstruction. project location onto path and compute the progress along it.
func CurrentInstruction(path *datastructure.Path, location geo.Coordinate) Projection {
	if path == nil {
		return InvalidProjection()
	}
	points := path.GetPoints()
	instructions := path.GetInstructions()
	if len(points) < 2 || len(instructions) == 0 {
		return InvalidProjection()
	}

	segment, distToRoute, ok := path.SegmentIndex().Nearest(location, searchRadius)
	if !ok {
		return InvalidProjection()
	}

	current := instructionOfSegment(instructions, segment)
	if current < 0 || current+1 >= len(instructions) {
		return InvalidProjection()
	}

	snapped := geo.ProjectPointToLineCoord(points[segment], points[segment+1], location)

	_, to := instructions[current].GetInterval()
	distanceToTurn := geo.Distance(snapped, points[segment+1])
	for i := segment + 1; i < to && i+1 < len(points); i++ {
		distanceToTurn += geo.Distance(points[i], points[i+1])
	}

	timeToTurn := 0.0
	if d := instructions[current].GetDistance(); d > 0 {
		timeToTurn = instructions[current].GetTime() * min(distanceToTurn/d, 1)
	}

	distanceToEnd, timeToEnd := distanceToTurn, timeToTurn
	for i := current + 1; i < len(instructions); i++ {
		distanceToEnd += instructions[i].GetDistance()
		timeToEnd += instructions[i].GetTime()
	}

	passed := 0
	for i := 0; i <= current; i++ {
		if instructions[i].GetTurnSign() == datastructure.REACHED_VIA {
			passed++
		}
	}

	distanceToWaypoint := distanceToTurn
	for i := current + 1; i < len(instructions) && !instructions[i].IsWaypoint(); i++ {
		distanceToWaypoint += instructions[i].GetDistance()
	}

	return Projection{
		Index:              current + 1,
		PointIndex:         segment,
		DistanceToTurn:     distanceToTurn,
		TimeToTurn:         timeToTurn,
		DistanceToEnd:      distanceToEnd,
		TimeToEnd:          timeToEnd,
		NextWaypointIndex:  passed + 1,
		DistanceToWaypoint: distanceToWaypoint,
		DistanceToRoute:    distToRoute,
		Snapped:            snapped,
	}
}

// instructionOfSegment. index of the instruction whose point interval contains segment
// (points[segment], points[segment+1])
func instructionOfSegment(instructions []datastructure.Instruction, segment int) int {
	for i := range instructions {
		from, to := instructions[i].GetInterval()
		if segment >= from && segment < to {
			return i
		}
	}
	return -1
}

// NearestWaypoint. index of the waypoint of path closest to c
func NearestWaypoint(path *datastructure.Path, c geo.Coordinate) int {
	best, bestDist := -1, 0.0
	for i, wp := range path.GetWaypoints() {
		d := geo.Distance(wp, c)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
