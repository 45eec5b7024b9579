// Package navigation implements turn-by-turn guidance: the navigation state machine and the
// event loop serializing its transitions.
package navigation

import (
	"math"

	"github.com/lintang-b-s/navigatorx-navi/pkg/custommodel"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/guidance"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"go.uber.org/zap"
)

const rerouteAnnouncement = "rerouting"

// Rerouter issues a routing request asynchronously. The result must come back through
// Navigator.OnRerouted with the same seq.
type Rerouter interface {
	Reroute(seq uint64, req routing.Request)
}

type Speaker interface {
	Speak(text string)
}

// Navigator. the navigation state machine. Not safe for concurrent use, Engine serializes every
// call.
type Navigator struct {
	state    State
	rerouter Rerouter
	speaker  Speaker
	log      *zap.Logger
}

func NewNavigator(rerouter Rerouter, speaker Speaker, log *zap.Logger) *Navigator {
	return &Navigator{
		state:    newState(),
		rerouter: rerouter,
		speaker:  speaker,
		log:      log,
	}
}

func (n *Navigator) State() *State {
	return &n.state
}

// Select. route chosen in the routing UI, used by the next Start.
func (n *Navigator) Select(path *datastructure.Path, profile string, customModel *custommodel.CustomModel) error {
	s := &n.state
	if s.Started {
		return ErrAlreadyStarted
	}
	if path == nil {
		return ErrNoRouteSelected
	}
	s.Selection = path
	s.Profile = profile
	s.CustomModel = customModel
	return nil
}

func (n *Navigator) UpdateSettings(update SettingsUpdate) error {
	s := &n.state
	if update.FakeGPS != nil && *update.FakeGPS != s.Settings.FakeGPS && s.Started {
		return util.WrapErrorf(nil, util.ErrConflict, "fake gps can not be toggled while navigating")
	}
	if update.FakeGPS != nil {
		s.Settings.FakeGPS = *update.FakeGPS
	}
	if update.AcceptedRisk != nil {
		s.Settings.AcceptedRisk = *update.AcceptedRisk
	}
	if update.SoundEnabled != nil {
		s.Settings.SoundEnabled = *update.SoundEnabled
	}
	return nil
}

// Start. idle -> active-no-fix on the selected route.
func (n *Navigator) Start(useFakeGPS, fullscreen bool) error {
	s := &n.state
	if s.Started {
		return ErrAlreadyStarted
	}
	if s.Selection == nil {
		return ErrNoRouteSelected
	}
	if !useFakeGPS && !s.Settings.AcceptedRisk {
		return ErrRiskNotAccepted
	}

	s.Started = true
	s.ShowUI = false
	s.InitialPath = s.Selection
	s.ActivePath = s.Selection
	s.Instruction = guidance.InvalidProjection()
	s.RerouteInProgress = false
	s.Settings.FakeGPS = useFakeGPS
	s.WakeLock = !useFakeGPS
	s.Fullscreen = fullscreen
	s.Notification = ""
	s.rerouteSeq++

	n.log.Info("navigation started",
		zap.Bool("fake_gps", useFakeGPS),
		zap.String("profile", s.Profile),
		zap.Int("waypoints", len(s.InitialPath.GetWaypoints())))
	return nil
}

// Stop. back to idle, safe to call when already idle. A reroute still in flight is ignored when it
// resolves.
func (n *Navigator) Stop() {
	s := &n.state
	wasStarted := s.Started

	s.Started = false
	s.ShowUI = false
	s.Speed = 0
	s.Heading = 0
	s.InitialPath = nil
	s.ActivePath = nil
	s.Instruction = guidance.InvalidProjection()
	s.RerouteInProgress = false
	s.WakeLock = false
	s.Fullscreen = false
	s.rerouteSeq++

	if wasStarted {
		n.log.Info("navigation stopped")
	}
}

// OnLocation. the central transition, run for every fix.
func (n *Navigator) OnLocation(fix datastructure.Fix) error {
	s := &n.state
	if !s.Started {
		return nil
	}
	if s.InitialPath == nil || s.ActivePath == nil {
		n.log.Error("location fix without a path", zap.Error(ErrNoPath))
		return ErrNoPath
	}
	if s.Profile == "" {
		return nil
	}

	coord := fix.Coordinate()
	if s.RerouteInProgress {
		n.setFix(fix)
		return nil
	}

	candidate := guidance.CurrentInstruction(s.ActivePath, coord)

	reroute, target := n.waypointSkip(coord, &candidate)
	last := -1.0
	if s.Instruction.Valid() {
		last = s.Instruction.DistanceToRoute
	}
	if !reroute && s.ShowUI && deviated(candidate.DistanceToRoute, last) {
		n.log.Info("deviated from route",
			zap.Float64("distance_to_route", candidate.DistanceToRoute),
			zap.Float64("last_distance_to_route", last))
		reroute, target = true, candidate.NextWaypointIndex
	}
	if reroute {
		n.reroute(fix, target)
		return nil
	}

	if !candidate.Valid() {
		n.log.Error("fix does not project onto the active path",
			zap.Float64("lat", coord.Lat),
			zap.Float64("lon", coord.Lon),
			zap.Int("points", len(s.ActivePath.GetPoints())))
		return ErrInvariant
	}

	prev := s.Instruction
	s.Instruction = candidate
	s.ShowUI = true
	n.setFix(fix)
	n.announce(prev, candidate)
	return nil
}

func (n *Navigator) setFix(fix datastructure.Fix) {
	n.state.Coordinate = fix.Coordinate()
	n.state.Speed = fix.Speed()
	n.state.Heading = fix.Heading()
}

// waypointSkip decides whether the waypoint candidate heads to is reached and returns the index
// of the waypoint to reroute to. A finished reroute leg switches back to the initial path, and
// candidate is recomputed against it.
func (n *Navigator) waypointSkip(coord geo.Coordinate, candidate *guidance.Projection) (bool, int) {
	s := &n.state
	if !candidate.Valid() {
		return false, -1
	}
	waypoints := s.ActivePath.GetWaypoints()
	next := candidate.NextWaypointIndex
	if next < 0 || next >= len(waypoints) {
		return false, -1
	}

	prev := math.Inf(1)
	if s.Instruction.Valid() && s.Instruction.NextWaypointIndex == next {
		prev = s.Instruction.DistanceToWaypoint
	}
	straight := geo.Distance(coord, waypoints[next])
	if !SkipWaypoint(prev, straight) {
		return false, -1
	}

	target := next + 1
	if s.ActivePath.IsLeg() && s.ActivePath != s.InitialPath && len(s.InitialPath.GetWaypoints()) > 2 {
		reached := guidance.NearestWaypoint(s.InitialPath, waypoints[len(waypoints)-1])
		if reached+1 < len(s.InitialPath.GetWaypoints()) {
			n.log.Info("reroute leg done, back to the initial path", zap.Int("waypoint", reached))
			s.ActivePath = s.InitialPath
			*candidate = guidance.CurrentInstruction(s.ActivePath, coord)
			target = reached + 1
		}
	}

	if target >= len(s.ActivePath.GetWaypoints()) {
		return false, -1
	}
	n.log.Info("waypoint reached", zap.Int("next_waypoint", target),
		zap.Float64("prev_distance", prev), zap.Float64("straight_distance", straight))
	return true, target
}

func (n *Navigator) reroute(fix datastructure.Fix, target int) {
	s := &n.state
	n.setFix(fix)
	waypoints := s.ActivePath.GetWaypoints()
	if target < 0 || target >= len(waypoints) {
		n.log.Warn("no waypoint to reroute to", zap.Int("target", target))
		return
	}

	req := routing.NewRequest(s.Profile, s.CustomModel, fix.Coordinate(), waypoints[target])
	if h := fix.Heading(); h >= 0 && h < 360 && !math.IsNaN(h) {
		req = req.WithHeading(h)
	}

	s.RerouteInProgress = true
	s.rerouteSeq++
	n.rerouter.Reroute(s.rerouteSeq, req)
}

// OnRerouted applies a reroute result. Results from an older request or arriving after stop are
// ignored, a failed or empty result keeps the active path.
func (n *Navigator) OnRerouted(seq uint64, paths []*datastructure.Path, err error) {
	s := &n.state
	if !s.Started || seq != s.rerouteSeq {
		n.log.Debug("ignore stale reroute result", zap.Uint64("seq", seq), zap.Uint64("current", s.rerouteSeq))
		return
	}
	s.RerouteInProgress = false

	if err != nil {
		n.log.Warn("reroute failed", zap.Error(err))
		return
	}
	if len(paths) == 0 {
		n.log.Warn("reroute returned no path")
		return
	}

	path := paths[0]
	projection := guidance.CurrentInstruction(path, s.Coordinate)
	if !projection.Valid() {
		n.log.Warn("reroute result does not match the current location, ignored")
		return
	}

	s.ActivePath = path
	s.Instruction = projection
	if s.Settings.SoundEnabled && n.speaker != nil {
		n.speaker.Speak(rerouteAnnouncement)
	}
}

// OnLocationError. surfaced as a dismissible notification, navigation keeps running.
func (n *Navigator) OnLocationError(err error) {
	if !n.state.Started {
		return
	}
	n.log.Warn("location source error", zap.Error(err))
	n.state.Notification = err.Error()
}

func (n *Navigator) DismissNotification() {
	n.state.Notification = ""
}

func (n *Navigator) announce(prev, cur guidance.Projection) {
	s := &n.state
	if !s.Settings.SoundEnabled || n.speaker == nil {
		return
	}
	ins := s.ActivePath.GetInstruction(cur.Index)
	if ins == nil {
		return
	}
	avgSpeed, _ := s.ActivePath.GetDetails().AverageSpeedAt(cur.PointIndex)
	if text, ok := announcement(prev, cur, avgSpeed/3.6, ins.GetText()); ok {
		n.speaker.Speak(text)
	}
}
