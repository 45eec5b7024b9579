package navigation

import (
	"github.com/lintang-b-s/navigatorx-navi/pkg/custommodel"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/guidance"
)

type Settings struct {
	FakeGPS      bool `json:"fake_gps"`
	AcceptedRisk bool `json:"accepted_risk"`
	SoundEnabled bool `json:"sound_enabled"`
}

// SettingsUpdate. nil fields are left unchanged.
type SettingsUpdate struct {
	FakeGPS      *bool `json:"fake_gps"`
	AcceptedRisk *bool `json:"accepted_risk"`
	SoundEnabled *bool `json:"sound_enabled"`
}

// State. mutable navigation state, owned by a single goroutine. Instruction only holds indices
// and distances into ActivePath, sign and text are read from the path.
type State struct {
	Started    bool
	ShowUI     bool
	Coordinate geo.Coordinate
	Heading    float64
	Speed      float64

	InitialPath *datastructure.Path
	ActivePath  *datastructure.Path
	Selection   *datastructure.Path

	Profile     string
	CustomModel *custommodel.CustomModel

	RerouteInProgress bool
	Instruction       guidance.Projection
	Settings          Settings

	WakeLock     bool
	Fullscreen   bool
	Notification string

	rerouteSeq uint64
}

func newState() State {
	return State{
		Instruction: guidance.InvalidProjection(),
	}
}

type InstructionSnapshot struct {
	Index              int     `json:"index"`
	DistanceToTurn     float64 `json:"distance_to_turn"`
	TimeToTurn         float64 `json:"time_to_turn"`
	DistanceToEnd      float64 `json:"distance_to_end"`
	TimeToEnd          float64 `json:"time_to_end"`
	NextWaypointIndex  int     `json:"next_waypoint_index"`
	DistanceToWaypoint float64 `json:"distance_to_waypoint"`
	DistanceToRoute    float64 `json:"distance_to_route"`
	Sign               int     `json:"sign"`
	Text               string  `json:"text"`
	StreetName         string  `json:"street_name"`
}

type PathDetailsSnapshot struct {
	EstimatedAverageSpeed *float64 `json:"estimated_average_speed"`
	MaxSpeed              *float64 `json:"max_speed"`
	Surface               string   `json:"surface"`
	RoadClass             string   `json:"road_class"`
}

type PathSummary struct {
	Distance  float64          `json:"distance"`
	Time      float64          `json:"time"`
	Points    string           `json:"points"`
	Waypoints []geo.Coordinate `json:"waypoints"`
}

// Snapshot. read only copy of State handed to the presentation layer.
type Snapshot struct {
	Started           bool                `json:"started"`
	ShowUI            bool                `json:"show_ui"`
	Coordinate        geo.Coordinate      `json:"coordinate"`
	Heading           float64             `json:"heading"`
	Speed             float64             `json:"speed"`
	Profile           string              `json:"profile"`
	RerouteInProgress bool                `json:"reroute_in_progress"`
	Instruction       InstructionSnapshot `json:"instruction"`
	PathDetails       PathDetailsSnapshot `json:"path_details"`
	Settings          Settings            `json:"settings"`
	WakeLock          bool                `json:"wake_lock"`
	Fullscreen        bool                `json:"fullscreen"`
	Notification      string              `json:"notification,omitempty"`
	ActivePath        *PathSummary        `json:"active_path,omitempty"`
	Selection         *PathSummary        `json:"selection,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Started:           s.Started,
		ShowUI:            s.ShowUI,
		Coordinate:        s.Coordinate,
		Heading:           s.Heading,
		Speed:             s.Speed,
		Profile:           s.Profile,
		RerouteInProgress: s.RerouteInProgress,
		Settings:          s.Settings,
		WakeLock:          s.WakeLock,
		Fullscreen:        s.Fullscreen,
		Notification:      s.Notification,
		ActivePath:        summarize(s.ActivePath),
		Selection:         summarize(s.Selection),
	}

	p := s.Instruction
	snap.Instruction = InstructionSnapshot{
		Index:              p.Index,
		DistanceToTurn:     p.DistanceToTurn,
		TimeToTurn:         p.TimeToTurn,
		DistanceToEnd:      p.DistanceToEnd,
		TimeToEnd:          p.TimeToEnd,
		NextWaypointIndex:  p.NextWaypointIndex,
		DistanceToWaypoint: p.DistanceToWaypoint,
		DistanceToRoute:    p.DistanceToRoute,
	}
	if s.ActivePath == nil {
		return snap
	}
	if ins := s.ActivePath.GetInstruction(p.Index); ins != nil {
		snap.Instruction.Sign = ins.GetTurnSign()
		snap.Instruction.Text = ins.GetText()
		snap.Instruction.StreetName = ins.GetStreetName()
	}
	if p.PointIndex >= 0 {
		details := s.ActivePath.GetDetails()
		if v, ok := details.AverageSpeedAt(p.PointIndex); ok {
			snap.PathDetails.EstimatedAverageSpeed = &v
		}
		if v, ok := details.MaxSpeedAt(p.PointIndex); ok {
			snap.PathDetails.MaxSpeed = &v
		}
		snap.PathDetails.Surface, _ = details.SurfaceAt(p.PointIndex)
		snap.PathDetails.RoadClass, _ = details.RoadClassAt(p.PointIndex)
	}
	return snap
}

func summarize(p *datastructure.Path) *PathSummary {
	if p == nil {
		return nil
	}
	return &PathSummary{
		Distance:  p.GetDistance(),
		Time:      p.GetTime(),
		Points:    p.GetEncodedPoints(),
		Waypoints: p.GetWaypoints(),
	}
}
