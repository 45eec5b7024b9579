package navigation

import (
	"errors"
	"testing"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure/pathtest"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/routing"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seg = 111.195 // meter per pathtest.Step on the equator

type rerouteCall struct {
	seq uint64
	req routing.Request
}

type recordingRerouter struct {
	calls []rerouteCall
}

func (r *recordingRerouter) Reroute(seq uint64, req routing.Request) {
	r.calls = append(r.calls, rerouteCall{seq: seq, req: req})
}

func (r *recordingRerouter) last() rerouteCall {
	return r.calls[len(r.calls)-1]
}

type recordingSpeaker struct {
	texts []string
}

func (s *recordingSpeaker) Speak(text string) {
	s.texts = append(s.texts, text)
}

func boolPtr(b bool) *bool {
	return &b
}

func fixAt(offset, north float64) datastructure.Fix {
	c := pathtest.At(0, offset, north)
	return datastructure.NewFix(c.Lat, c.Lon, 90, 7, time.Now())
}

// fixBeforeTurn. fix on the equator distance meter before the point at turnOffset
func fixBeforeTurn(turnOffset float64, distance float64) datastructure.Fix {
	return fixAt(turnOffset-distance/seg, 0)
}

func startedNavigator(t *testing.T, path *datastructure.Path, sound bool) (*Navigator, *recordingRerouter, *recordingSpeaker) {
	t.Helper()
	rerouter := &recordingRerouter{}
	speaker := &recordingSpeaker{}
	nav := NewNavigator(rerouter, speaker, zap.NewNop())
	require.NoError(t, nav.Select(path, "car", nil))
	require.NoError(t, nav.UpdateSettings(SettingsUpdate{SoundEnabled: boolPtr(sound)}))
	require.NoError(t, nav.Start(true, false))
	return nav, rerouter, speaker
}

func TestSkipWaypoint(t *testing.T) {
	testCases := []struct {
		name     string
		prev     float64
		straight float64
		want     bool
	}{
		{name: "previous distance close", prev: 40, straight: 500, want: true},
		{name: "straight distance close", prev: 500, straight: 49.9, want: true},
		{name: "neither close", prev: 100, straight: 60, want: false},
		{name: "both within the joint bound", prev: 70, straight: 75, want: true},
		{name: "only one within the joint bound", prev: 79, straight: 81, want: false},
		{name: "boundary is exclusive", prev: 80, straight: 50, want: false},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SkipWaypoint(tt.prev, tt.straight))
		})
	}
}

func TestLastAnnounceDistance(t *testing.T) {
	assert.Equal(t, 20.0, LastAnnounceDistance(25/3.6))
	assert.Equal(t, 10.0, LastAnnounceDistance(0))
	assert.Equal(t, 50.0, LastAnnounceDistance(72/3.6))
}

func TestStartPreconditions(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 5})
	nav := NewNavigator(&recordingRerouter{}, nil, zap.NewNop())

	assert.ErrorIs(t, nav.Start(true, false), ErrNoRouteSelected)
	require.NoError(t, nav.Select(path, "car", nil))

	err := nav.Start(false, true)
	assert.ErrorIs(t, err, ErrRiskNotAccepted)
	assert.True(t, errors.Is(err, util.ErrBadParamInput))
	assert.False(t, nav.State().Started)

	require.NoError(t, nav.UpdateSettings(SettingsUpdate{AcceptedRisk: boolPtr(true)}))
	require.NoError(t, nav.Start(false, true))
	s := nav.State()
	assert.True(t, s.Started)
	assert.False(t, s.ShowUI)
	assert.True(t, s.WakeLock)
	assert.True(t, s.Fullscreen)
	assert.Same(t, path, s.InitialPath)
	assert.Same(t, path, s.ActivePath)

	assert.ErrorIs(t, nav.Start(false, false), ErrAlreadyStarted)
	assert.ErrorIs(t, nav.Select(path, "bike", nil), ErrAlreadyStarted)
	assert.Error(t, nav.UpdateSettings(SettingsUpdate{FakeGPS: boolPtr(true)}))

	nav.Stop()
	nav.Stop()
	assert.False(t, s.Started)
	assert.False(t, s.WakeLock)
	assert.False(t, s.Fullscreen)
	assert.Nil(t, s.ActivePath)
	assert.Same(t, path, s.Selection)

	require.NoError(t, nav.Start(true, false))
	assert.False(t, s.WakeLock, "no wake lock with fake gps")
	assert.True(t, s.Settings.FakeGPS)
}

func TestOnLocationCommits(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 10, Turns: []int{5}})
	nav, rerouter, _ := startedNavigator(t, path, false)

	require.NoError(t, nav.OnLocation(fixAt(2.5, 10)))
	s := nav.State()
	assert.True(t, s.ShowUI)
	assert.Equal(t, 1, s.Instruction.Index)
	assert.InDelta(t, 2.5*seg, s.Instruction.DistanceToTurn, 1)
	assert.InDelta(t, 7, s.Speed, 1e-9)
	assert.InDelta(t, 90, s.Heading, 1e-9)
	assert.Empty(t, rerouter.calls)

	snap := s.Snapshot()
	assert.Equal(t, datastructure.TURN_LEFT, snap.Instruction.Sign)
	assert.Equal(t, "Turn left", snap.Instruction.Text)
	require.NotNil(t, snap.PathDetails.EstimatedAverageSpeed)
	assert.InDelta(t, 36, *snap.PathDetails.EstimatedAverageSpeed, 1e-9)
	assert.Nil(t, snap.PathDetails.MaxSpeed)
	assert.Equal(t, "primary", snap.PathDetails.RoadClass)
	require.NotNil(t, snap.ActivePath)
	assert.Equal(t, path.GetEncodedPoints(), snap.ActivePath.Points)
}

func TestOnLocationWithoutProfile(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 5})
	nav := NewNavigator(&recordingRerouter{}, nil, zap.NewNop())
	require.NoError(t, nav.Select(path, "", nil))
	require.NoError(t, nav.Start(true, false))

	before := nav.State().Snapshot()
	require.NoError(t, nav.OnLocation(fixAt(1, 0)))
	assert.Equal(t, before, nav.State().Snapshot())
}

func TestOnLocationInvariant(t *testing.T) {
	points := []geo.Coordinate{geo.NewCoordinate(0, 0), geo.NewCoordinate(0, 0.001), geo.NewCoordinate(0, 0.002)}
	// segment 1 is covered by no instruction
	path := datastructure.NewPath(points, []geo.Coordinate{points[0], points[2]},
		[]datastructure.Instruction{
			datastructure.NewInstruction(datastructure.CONTINUE_ON_STREET, "Continue", "", 0, 1, seg, 10000),
			datastructure.NewInstruction(datastructure.FINISH, "Arrive", "", 2, 2, 0, 0),
		}, datastructure.PathDetails{}, seg, 10000)
	nav, rerouter, _ := startedNavigator(t, path, false)

	var err error
	assert.NotPanics(t, func() { err = nav.OnLocation(fixAt(1.2, 0)) })
	assert.ErrorIs(t, err, ErrInvariant)
	assert.False(t, nav.State().ShowUI)
	assert.Empty(t, rerouter.calls)
}

func TestOnLocationBeforeStartAndAfterStop(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 5})
	nav := NewNavigator(&recordingRerouter{}, nil, zap.NewNop())
	require.NoError(t, nav.OnLocation(fixAt(1, 0)))

	require.NoError(t, nav.Select(path, "car", nil))
	require.NoError(t, nav.Start(true, false))
	require.NoError(t, nav.OnLocation(fixAt(1, 0)))
	nav.Stop()

	before := nav.State().Snapshot()
	assert.NotPanics(t, func() {
		assert.NoError(t, nav.OnLocation(fixAt(2, 60)))
	})
	assert.Equal(t, before, nav.State().Snapshot())
	assert.Zero(t, before.Speed)
	assert.Zero(t, before.Heading)
}

func TestNearAnnouncementFiresOnce(t *testing.T) {
	// 25 km/h, last announce distance 20 m
	path := pathtest.East(0, 25, pathtest.Leg{Points: 10, Turns: []int{5}})
	nav, _, speaker := startedNavigator(t, path, true)

	for _, d := range []float64{30, 18, 10, 4} {
		require.NoError(t, nav.OnLocation(fixBeforeTurn(5, d)))
	}
	assert.Equal(t, []string{"Turn left"}, speaker.texts)
}

func TestNearAnnouncementNeedsSound(t *testing.T) {
	path := pathtest.East(0, 25, pathtest.Leg{Points: 10, Turns: []int{5}})
	nav, _, speaker := startedNavigator(t, path, false)
	for _, d := range []float64{30, 18} {
		require.NoError(t, nav.OnLocation(fixBeforeTurn(5, d)))
	}
	assert.Empty(t, speaker.texts)
}

func TestFarAnnouncement(t *testing.T) {
	testCases := []struct {
		name      string
		avgSpeed  float64 // km/h
		distances []float64
		want      []string
	}{
		{
			name:      "fast, one kilometer then the turn",
			avgSpeed:  72,
			distances: []float64{1300, 1000, 700, 300, 40, 20},
			want:      []string{"In one kilometer, Turn left", "Turn left"},
		},
		{
			name:      "fast, first fix inside the window",
			avgSpeed:  72,
			distances: []float64{640, 500},
			want:      []string{"In 600 meters, Turn left"},
		},
		{
			name:      "slow, never far",
			avgSpeed:  10,
			distances: []float64{1300, 1000, 700, 300, 100},
			want:      nil,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			path := pathtest.East(0, tt.avgSpeed, pathtest.Leg{Points: 20, Turns: []int{15}})
			nav, _, speaker := startedNavigator(t, path, true)
			for _, d := range tt.distances {
				require.NoError(t, nav.OnLocation(fixBeforeTurn(15, d)))
			}
			assert.Equal(t, tt.want, speaker.texts)
		})
	}
}

func TestDeviationReroute(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 10}, pathtest.Leg{Points: 10})
	nav, rerouter, speaker := startedNavigator(t, path, true)
	s := nav.State()

	require.NoError(t, nav.OnLocation(fixAt(2, 5)))
	require.True(t, s.ShowUI)
	require.Empty(t, rerouter.calls)

	// 35 m further off than the last fix is tolerated
	require.NoError(t, nav.OnLocation(fixAt(3, 40)))
	require.Empty(t, rerouter.calls)

	require.NoError(t, nav.OnLocation(fixAt(4, 95)))
	require.Len(t, rerouter.calls, 1)
	assert.True(t, s.RerouteInProgress)
	req := rerouter.last().req
	require.Len(t, req.Points, 2)
	assert.Equal(t, fixAt(4, 95).Coordinate(), req.Points[0])
	assert.Equal(t, path.GetWaypoints()[1], req.Points[1])
	assert.Equal(t, "car", req.Profile)
	require.NotNil(t, req.Heading)
	assert.InDelta(t, 90, *req.Heading, 1e-9)

	// fixes during the reroute only move the position
	committed := s.Instruction
	for _, off := range []float64{4.5, 5, 5.5} {
		require.NoError(t, nav.OnLocation(fixAt(off, 200)))
	}
	assert.Len(t, rerouter.calls, 1)
	assert.Equal(t, committed, s.Instruction)
	assert.Equal(t, fixAt(5.5, 200).Coordinate(), s.Coordinate)
	assert.True(t, s.ShowUI)

	leg := pathtest.East(0.0055, 36, pathtest.Leg{Points: 5})
	nav.OnRerouted(rerouter.last().seq, []*datastructure.Path{leg}, nil)
	assert.False(t, s.RerouteInProgress)
	assert.Same(t, leg, s.ActivePath)
	assert.Same(t, path, s.InitialPath)
	assert.True(t, s.Instruction.Valid())
	assert.InDelta(t, 200, s.Instruction.DistanceToRoute, 1)
	assert.Equal(t, []string{"rerouting"}, speaker.texts)

	// deviation is measured against the last committed fix
	require.NoError(t, nav.OnLocation(fixAt(6, 230)))
	assert.Len(t, rerouter.calls, 1)
	assert.InDelta(t, 230, s.Instruction.DistanceToRoute, 1)
	require.NoError(t, nav.OnLocation(fixAt(6.5, 290)))
	assert.Len(t, rerouter.calls, 2)
}

func TestGradualDriftDoesNotReroute(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 10}, pathtest.Leg{Points: 10})
	nav, rerouter, _ := startedNavigator(t, path, false)
	s := nav.State()

	for i, north := range []float64{0, 40, 80, 120, 160} {
		require.NoError(t, nav.OnLocation(fixAt(2+0.5*float64(i), north)))
		assert.Empty(t, rerouter.calls, "north %.0f", north)
		assert.InDelta(t, north, s.Instruction.DistanceToRoute, 1)
	}
	assert.True(t, s.ShowUI)
	assert.False(t, s.RerouteInProgress)

	require.NoError(t, nav.OnLocation(fixAt(4.5, 215)))
	assert.Len(t, rerouter.calls, 1)
}

func TestDeviated(t *testing.T) {
	testCases := []struct {
		name            string
		distanceToRoute float64
		last            float64
		want            bool
	}{
		{name: "first value within threshold", distanceToRoute: 50, last: -1, want: false},
		{name: "first value over threshold", distanceToRoute: 51, last: -1, want: true},
		{name: "drift of 50", distanceToRoute: 130, last: 80, want: false},
		{name: "drift over 50", distanceToRoute: 131, last: 80, want: true},
		{name: "back toward the route", distanceToRoute: 10, last: 80, want: true},
		{name: "invalid projection", distanceToRoute: -1, last: 80, want: false},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deviated(tt.distanceToRoute, tt.last))
		})
	}
}

func TestRerouteFailureKeepsPath(t *testing.T) {
	testCases := []struct {
		name  string
		paths []*datastructure.Path
		err   error
	}{
		{name: "no candidate path", paths: nil},
		{name: "request failed", err: util.WrapErrorf(errors.New("connection refused"), util.ErrUnavailable, "routing request failed")},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			path := pathtest.East(0, 36, pathtest.Leg{Points: 10})
			nav, rerouter, speaker := startedNavigator(t, path, true)
			s := nav.State()
			require.NoError(t, nav.OnLocation(fixAt(2, 0)))
			require.NoError(t, nav.OnLocation(fixAt(3, 80)))
			require.Len(t, rerouter.calls, 1)

			nav.OnRerouted(rerouter.last().seq, tt.paths, tt.err)
			assert.False(t, s.RerouteInProgress)
			assert.Same(t, path, s.ActivePath)
			assert.Empty(t, speaker.texts)

			// the next deviating fix retries
			require.NoError(t, nav.OnLocation(fixAt(3.5, 80)))
			assert.Len(t, rerouter.calls, 2)
		})
	}
}

func TestStaleRerouteIgnored(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 10})
	leg := pathtest.East(0.003, 36, pathtest.Leg{Points: 5})

	t.Run("after stop", func(t *testing.T) {
		nav, rerouter, _ := startedNavigator(t, path, false)
		require.NoError(t, nav.OnLocation(fixAt(2, 0)))
		require.NoError(t, nav.OnLocation(fixAt(3, 80)))
		require.Len(t, rerouter.calls, 1)

		nav.Stop()
		before := nav.State().Snapshot()
		nav.OnRerouted(rerouter.last().seq, []*datastructure.Path{leg}, nil)
		assert.Equal(t, before, nav.State().Snapshot())
	})

	t.Run("older request", func(t *testing.T) {
		nav, rerouter, _ := startedNavigator(t, path, false)
		require.NoError(t, nav.OnLocation(fixAt(2, 0)))
		require.NoError(t, nav.OnLocation(fixAt(3, 80)))
		require.Len(t, rerouter.calls, 1)

		nav.OnRerouted(rerouter.last().seq-1, []*datastructure.Path{leg}, nil)
		assert.True(t, nav.State().RerouteInProgress)
		assert.Same(t, path, nav.State().ActivePath)
	})

	t.Run("result the location does not project onto", func(t *testing.T) {
		nav, rerouter, _ := startedNavigator(t, path, false)
		require.NoError(t, nav.OnLocation(fixAt(2, 0)))
		require.NoError(t, nav.OnLocation(fixAt(3, 80)))

		empty := datastructure.NewPath(nil, nil, nil, datastructure.PathDetails{}, 0, 0)
		nav.OnRerouted(rerouter.last().seq, []*datastructure.Path{empty}, nil)
		assert.False(t, nav.State().RerouteInProgress)
		assert.Same(t, path, nav.State().ActivePath)
	})
}

func TestWaypointSkip(t *testing.T) {
	initial := pathtest.East(0, 36, pathtest.Leg{Points: 5}, pathtest.Leg{Points: 5}, pathtest.Leg{Points: 5})
	nav, rerouter, _ := startedNavigator(t, initial, false)
	s := nav.State()
	waypoints := initial.GetWaypoints()
	require.Len(t, waypoints, 4)

	require.NoError(t, nav.OnLocation(fixAt(2, 0)))
	assert.Equal(t, 1, s.Instruction.NextWaypointIndex)
	assert.Empty(t, rerouter.calls)

	// 33 m before the first via point
	require.NoError(t, nav.OnLocation(fixAt(4.7, 0)))
	require.Len(t, rerouter.calls, 1)
	assert.Equal(t, waypoints[2], rerouter.last().req.Points[1])

	leg := pathtest.East(0.0047, 36, pathtest.Leg{Points: 5})
	nav.OnRerouted(rerouter.last().seq, []*datastructure.Path{leg}, nil)
	require.Same(t, leg, s.ActivePath)

	// end of the reroute leg: back to the initial path, heading for the next waypoint
	require.NoError(t, nav.OnLocation(fixAt(9.4, 0)))
	require.Len(t, rerouter.calls, 2)
	assert.Same(t, initial, s.ActivePath)
	assert.Equal(t, waypoints[3], rerouter.last().req.Points[1])

	last := pathtest.East(0.0094, 36, pathtest.Leg{Points: 5})
	nav.OnRerouted(rerouter.last().seq, []*datastructure.Path{last}, nil)
	require.Same(t, last, s.ActivePath)

	// close to the destination, nothing left to skip to
	require.NoError(t, nav.OnLocation(fixAt(14.1, 0)))
	assert.Len(t, rerouter.calls, 2)
	assert.False(t, s.RerouteInProgress)
	assert.Same(t, last, s.ActivePath)
	assert.InDelta(t, 0.3*seg, s.Instruction.DistanceToEnd, 1)
}

func TestShowUIMonotonic(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 10}, pathtest.Leg{Points: 10})
	nav, rerouter, _ := startedNavigator(t, path, false)
	s := nav.State()

	fixes := []datastructure.Fix{
		fixAt(1, 0), fixAt(2, 100), fixAt(3, 300), fixAt(4, 0), fixAt(7, 20),
	}
	shown := false
	for i, fix := range fixes {
		_ = nav.OnLocation(fix)
		if shown {
			assert.True(t, s.ShowUI, "fix %d", i)
		}
		shown = s.ShowUI
		if i == 2 && len(rerouter.calls) > 0 {
			nav.OnRerouted(rerouter.last().seq, nil, errors.New("offline"))
		}
	}
	assert.True(t, shown)

	nav.Stop()
	assert.False(t, s.ShowUI)
}

func TestLocationErrorNotification(t *testing.T) {
	path := pathtest.East(0, 36, pathtest.Leg{Points: 5})
	nav := NewNavigator(&recordingRerouter{}, nil, zap.NewNop())
	nav.OnLocationError(errors.New("ignored while idle"))
	assert.Empty(t, nav.State().Notification)

	require.NoError(t, nav.Select(path, "car", nil))
	require.NoError(t, nav.Start(true, false))
	nav.OnLocationError(errors.New("no location fix received in time"))
	assert.Equal(t, "no location fix received in time", nav.State().Notification)
	assert.True(t, nav.State().Started)

	nav.DismissNotification()
	assert.Empty(t, nav.State().Notification)
}
