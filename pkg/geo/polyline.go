package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"
)

// PoylineFromCoords. encode coords as a google polyline (precision 1e5, lat first)
func PoylineFromCoords(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}

	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline. inverse of PoylineFromCoords
func DecodePolyline(encoded string) ([]Coordinate, error) {
	return DecodePolylineScale(encoded, 1e5)
}

// DecodePolylineScale decodes a polyline encoded with a non default multiplier (1e6 for some
// routing backends). scale <= 0 means the default 1e5.
func DecodePolylineScale(encoded string, scale float64) ([]Coordinate, error) {
	if scale <= 0 {
		scale = 1e5
	}
	codec := polyline.Codec{Dim: 2, Scale: scale}
	coords, rest, err := codec.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("decode polyline: %d trailing bytes", len(rest))
	}

	path := make([]Coordinate, len(coords))
	for i, c := range coords {
		path[i] = NewCoordinate(c[0], c[1])
	}
	return path, nil
}
