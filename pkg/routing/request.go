package routing

import (
	"github.com/lintang-b-s/navigatorx-navi/pkg/custommodel"
	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
)

// Request. routing request from Points[0] through every following point. Heading (degree) is a
// hint for the first point only.
type Request struct {
	Points               []geo.Coordinate         `json:"points" validate:"required,min=2,max=50,dive"`
	Heading              *float64                 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
	Profile              string                   `json:"profile" validate:"required"`
	MaxAlternativeRoutes int                      `json:"max_alternative_routes" validate:"gte=0,lte=5"`
	CustomModel          *custommodel.CustomModel `json:"custom_model,omitempty"`
}

func NewRequest(profile string, customModel *custommodel.CustomModel, points ...geo.Coordinate) Request {
	return Request{
		Points:               points,
		Profile:              profile,
		MaxAlternativeRoutes: 1,
		CustomModel:          customModel,
	}
}

func (r Request) WithHeading(heading float64) Request {
	r.Heading = &heading
	return r
}

func (r Request) WithAlternatives(n int) Request {
	r.MaxAlternativeRoutes = n
	return r
}
