package datastructure

import (
	"time"

	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
)

// Fix. one location sample. heading in degree clockwise from north, speed in meter/second.
type Fix struct {
	coord   geo.Coordinate
	heading float64
	speed   float64
	time    time.Time
}

func NewFix(lat, lon float64, heading, speed float64, t time.Time) Fix {
	return Fix{
		coord:   geo.NewCoordinate(lat, lon),
		heading: heading,
		speed:   speed,
		time:    t,
	}
}

func (f Fix) Coordinate() geo.Coordinate {
	return f.coord
}

func (f Fix) Lat() float64 {
	return f.coord.Lat
}

func (f Fix) Lon() float64 {
	return f.coord.Lon
}

func (f Fix) Heading() float64 {
	return f.heading
}

func (f Fix) Speed() float64 {
	return f.speed
}

func (f Fix) Time() time.Time {
	return f.time
}

// WithTime. copy of f stamped with t
func (f Fix) WithTime(t time.Time) Fix {
	f.time = t
	return f
}
