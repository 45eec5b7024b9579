package routing

import (
	"github.com/lintang-b-s/navigatorx-navi/pkg/custommodel"
	"github.com/lintang-b-s/navigatorx-navi/pkg/datastructure"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/util"
)

var requestedDetails = []string{"average_speed", "max_speed", "surface", "road_class"}

type routeRequest struct {
	Points        [][2]float64             `json:"points"`
	Profile       string                   `json:"profile"`
	Headings      []float64                `json:"headings,omitempty"`
	CHDisable     bool                     `json:"ch.disable"`
	CustomModel   *custommodel.CustomModel `json:"custom_model,omitempty"`
	Algorithm     string                   `json:"algorithm,omitempty"`
	MaxPaths      int                      `json:"alternative_route.max_paths,omitempty"`
	PointsEncoded bool                     `json:"points_encoded"`
	Instructions  bool                     `json:"instructions"`
	Locale        string                   `json:"locale,omitempty"`
	Details       []string                 `json:"details"`
}

func newRouteRequest(req Request, locale string) routeRequest {
	points := make([][2]float64, len(req.Points))
	for i, p := range req.Points {
		points[i] = p.LngLat()
	}
	body := routeRequest{
		Points:        points,
		Profile:       req.Profile,
		CustomModel:   req.CustomModel,
		PointsEncoded: true,
		Instructions:  true,
		Locale:        locale,
		Details:       requestedDetails,
	}
	if req.Heading != nil {
		body.Headings = []float64{*req.Heading}
	}
	// headings and custom models are not supported by the speed mode
	body.CHDisable = req.Heading != nil || req.CustomModel != nil
	if req.MaxAlternativeRoutes > 1 {
		body.Algorithm = "alternative_route"
		body.MaxPaths = req.MaxAlternativeRoutes
		body.CHDisable = true
	}
	return body
}

type routeResponse struct {
	Paths   []pathResponse `json:"paths"`
	Message string         `json:"message"`
}

type pathResponse struct {
	Distance                float64                   `json:"distance"`
	Time                    float64                   `json:"time"`
	Points                  string                    `json:"points"`
	SnappedWaypoints        string                    `json:"snapped_waypoints"`
	PointsEncodedMultiplier float64                   `json:"points_encoded_multiplier"`
	Instructions            []instructionResponse     `json:"instructions"`
	Details                 datastructure.PathDetails `json:"details"`
}

type instructionResponse struct {
	Distance   float64 `json:"distance"`
	Sign       int     `json:"sign"`
	Interval   [2]int  `json:"interval"`
	Text       string  `json:"text"`
	Time       float64 `json:"time"`
	StreetName string  `json:"street_name"`
	ExitNumber int     `json:"exit_number"`
}

func (p pathResponse) toPath() (*datastructure.Path, error) {
	points, err := geo.DecodePolylineScale(p.Points, p.PointsEncodedMultiplier)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrUnavailable, "invalid path points from routing backend")
	}
	waypoints, err := geo.DecodePolylineScale(p.SnappedWaypoints, p.PointsEncodedMultiplier)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrUnavailable, "invalid snapped waypoints from routing backend")
	}

	instructions := make([]datastructure.Instruction, 0, len(p.Instructions))
	for _, ins := range p.Instructions {
		from, to := ins.Interval[0], ins.Interval[1]
		if from < 0 || to < from || to >= len(points) {
			return nil, util.WrapErrorf(nil, util.ErrUnavailable,
				"instruction interval [%d, %d] outside of %d path points", from, to, len(points))
		}
		instructions = append(instructions, datastructure.NewInstruction(ins.Sign, ins.Text, ins.StreetName,
			from, to, ins.Distance, ins.Time).WithExitNumber(ins.ExitNumber))
	}

	return datastructure.NewPath(points, waypoints, instructions, p.Details, p.Distance, p.Time), nil
}
