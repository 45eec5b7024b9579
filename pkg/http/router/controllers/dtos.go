package controllers

import (
	"encoding/json"
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/navigation"
)

type routeRequest struct {
	Points               []geo.Coordinate `json:"points" validate:"required,min=2,max=50,dive"`
	Profile              string           `json:"profile" validate:"required"`
	Heading              *float64         `json:"heading" validate:"omitempty,gte=0,lt=360"`
	MaxAlternativeRoutes int              `json:"max_alternative_routes" validate:"gte=0,lte=5"`
	CustomModel          json.RawMessage  `json:"custom_model"`
}

type startRequest struct {
	FakeGPS    bool `json:"fake_gps"`
	Fullscreen bool `json:"fullscreen"`
}

type settingsRequest struct {
	SoundEnabled *bool `json:"sound_enabled"`
	FakeGPS      *bool `json:"fake_gps"`
	AcceptedRisk *bool `json:"accepted_risk"`
}

func (r settingsRequest) toUpdate() navigation.SettingsUpdate {
	return navigation.SettingsUpdate{
		SoundEnabled: r.SoundEnabled,
		FakeGPS:      r.FakeGPS,
		AcceptedRisk: r.AcceptedRisk,
	}
}

// fixRequest. one browser geolocation sample. heading and speed are null when the device does
// not know them.
type fixRequest struct {
	Lat     float64  `json:"lat" validate:"min=-90,max=90"`
	Lon     float64  `json:"lon" validate:"min=-180,max=180"`
	Heading *float64 `json:"heading" validate:"omitempty,gte=0,lt=360"`
	Speed   *float64 `json:"speed" validate:"omitempty,gte=0"`
}

func (r fixRequest) toFix(now time.Time) datastructure.Fix {
	heading, speed := -1.0, 0.0
	if r.Heading != nil {
		heading = *r.Heading
	}
	if r.Speed != nil {
		speed = *r.Speed
	}
	return datastructure.NewFix(r.Lat, r.Lon, heading, speed, now)
}

type instructionResponse struct {
	Sign       int     `json:"sign"`
	TurnType   string  `json:"turn_type"`
	Text       string  `json:"text"`
	StreetName string  `json:"street_name"`
	ExitNumber int     `json:"exit_number,omitempty"`
	Interval   [2]int  `json:"interval"`
	Distance   float64 `json:"distance"`
	Time       float64 `json:"time"`
}

type pathResponse struct {
	Distance     float64               `json:"distance"`
	Time         float64               `json:"time"`
	Points       string                `json:"points"`
	Waypoints    []geo.Coordinate      `json:"waypoints"`
	Instructions []instructionResponse `json:"instructions"`
}

func NewPathResponse(p *datastructure.Path) pathResponse {
	instructions := p.GetInstructions()
	resp := pathResponse{
		Distance:     p.GetDistance(),
		Time:         p.GetTime(),
		Points:       p.GetEncodedPoints(),
		Waypoints:    p.GetWaypoints(),
		Instructions: make([]instructionResponse, 0, len(instructions)),
	}
	for i := range instructions {
		ins := &instructions[i]
		from, to := ins.GetInterval()
		resp.Instructions = append(resp.Instructions, instructionResponse{
			Sign:       ins.GetTurnSign(),
			TurnType:   ins.GetTurnType(),
			Text:       ins.GetText(),
			StreetName: ins.GetStreetName(),
			ExitNumber: ins.GetExitNumber(),
			Interval:   [2]int{from, to},
			Distance:   ins.GetDistance(),
			Time:       ins.GetTime(),
		})
	}
	return resp
}

type routeResponse struct {
	Paths []pathResponse `json:"paths"`
}

func NewRouteResponse(paths []*datastructure.Path) routeResponse {
	resp := routeResponse{Paths: make([]pathResponse, 0, len(paths))}
	for _, p := range paths {
		resp.Paths = append(resp.Paths, NewPathResponse(p))
	}
	return resp
}
