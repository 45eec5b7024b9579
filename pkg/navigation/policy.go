package navigation

import (
	"fmt"
	"math"

	"github.com/lintang-b-s/navigatorx-navi/pkg/guidance"
)

const (
	waypointReachedDistance      = 50.0 // meter
	waypointJointReachedDistance = 80.0
	rerouteDeviation             = 50.0
	farAnnounceMaxDistance       = 1150.0
	farAnnounceMinSpeed          = 15.0 // meter/second
	farAnnounceKilometer         = 800.0
)

// SkipWaypoint. the next waypoint counts as reached when the previous distance to it or the
// straight line distance from the fix is below 50 m, or both are below 80 m. The joint bound
// catches fixes jumping past a waypoint without a close sample.
func SkipWaypoint(prevDistanceToWaypoint, straightDistance float64) bool {
	return prevDistanceToWaypoint < waypointReachedDistance ||
		straightDistance < waypointReachedDistance ||
		(prevDistanceToWaypoint < waypointJointReachedDistance && straightDistance < waypointJointReachedDistance)
}

// deviated compares the distance to route with the last committed one. last < 0 means nothing
// was committed yet and the fixed threshold applies.
func deviated(distanceToRoute, last float64) bool {
	if distanceToRoute < 0 {
		return false
	}
	if last < 0 {
		return distanceToRoute > rerouteDeviation
	}
	return math.Abs(distanceToRoute-last) > rerouteDeviation
}

// LastAnnounceDistance. distance to the turn (meter) below which the maneuver itself is spoken,
// grows with the estimated speed (meter/second) in steps of 10 m.
func LastAnnounceDistance(speed float64) float64 {
	return 10 + 2*math.Round(speed/5)*5
}

// announcement decides what to say for the transition prev -> cur. speed is the estimated
// average speed (meter/second) at cur, text the instruction text of cur.
func announcement(prev, cur guidance.Projection, speed float64, text string) (string, bool) {
	if !cur.Valid() || text == "" {
		return "", false
	}
	last := LastAnnounceDistance(speed)
	d := cur.DistanceToTurn
	changed := prev.Index != cur.Index

	if d <= last && (changed || prev.DistanceToTurn > last) {
		return text, true
	}

	if speed > farAnnounceMinSpeed && d > last+50 && d <= farAnnounceMaxDistance &&
		(changed || prev.DistanceToTurn > farAnnounceMaxDistance) {
		if d > farAnnounceKilometer {
			return "In one kilometer, " + text, true
		}
		return fmt.Sprintf("In %d meters, %s", int(math.Round(d/100)*100), text), true
	}
	return "", false
}
