package datastructure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lintang-b-s/navigatorx-navi/pkg/geo"
	"github.com/lintang-b-s/navigatorx-navi/pkg/spatialindex"
)

// Path. one candidate route returned by the routing backend. A Path is never modified after
// decoding, state referring to it keeps indices into its slices.
type Path struct {
	distance      float64 // meter
	time          float64 // millisecond
	encodedPoints string
	points        []geo.Coordinate
	waypoints     []geo.Coordinate
	instructions  []Instruction
	details       PathDetails

	indexOnce sync.Once
	index     *spatialindex.SegmentIndex
}

func NewPath(points, waypoints []geo.Coordinate, instructions []Instruction, details PathDetails,
	distance, time float64) *Path {
	return &Path{
		distance:      distance,
		time:          time,
		encodedPoints: geo.PoylineFromCoords(points),
		points:        points,
		waypoints:     waypoints,
		instructions:  instructions,
		details:       details,
	}
}

func (p *Path) GetDistance() float64 {
	return p.distance
}

func (p *Path) GetTime() float64 {
	return p.time
}

func (p *Path) GetPoints() []geo.Coordinate {
	return p.points
}

func (p *Path) GetEncodedPoints() string {
	return p.encodedPoints
}

func (p *Path) GetWaypoints() []geo.Coordinate {
	return p.waypoints
}

func (p *Path) GetInstructions() []Instruction {
	return p.instructions
}

func (p *Path) GetInstruction(i int) *Instruction {
	if i < 0 || i >= len(p.instructions) {
		return nil
	}
	return &p.instructions[i]
}

func (p *Path) GetDetails() *PathDetails {
	return &p.details
}

// IsLeg. the path connects exactly two waypoints, as every reroute does
func (p *Path) IsLeg() bool {
	return len(p.waypoints) == 2
}

// SegmentIndex. r-tree over the path segments, built on first use
func (p *Path) SegmentIndex() *spatialindex.SegmentIndex {
	p.indexOnce.Do(func() {
		p.index = spatialindex.NewSegmentIndex(p.points)
	})
	return p.index
}

// PathDetails. per point interval attributes of a path
type PathDetails struct {
	AverageSpeed []Detail[float64] `json:"average_speed,omitempty"`
	MaxSpeed     []Detail[float64] `json:"max_speed,omitempty"`
	Surface      []Detail[string]  `json:"surface,omitempty"`
	RoadClass    []Detail[string]  `json:"road_class,omitempty"`
}

func (pd *PathDetails) AverageSpeedAt(pointIndex int) (float64, bool) {
	return detailAt(pd.AverageSpeed, pointIndex)
}

func (pd *PathDetails) MaxSpeedAt(pointIndex int) (float64, bool) {
	return detailAt(pd.MaxSpeed, pointIndex)
}

func (pd *PathDetails) SurfaceAt(pointIndex int) (string, bool) {
	return detailAt(pd.Surface, pointIndex)
}

func (pd *PathDetails) RoadClassAt(pointIndex int) (string, bool) {
	return detailAt(pd.RoadClass, pointIndex)
}

// Detail. value valid for path points [From, To). Valid is false when the backend sent null.
type Detail[T any] struct {
	From  int
	To    int
	Value T
	Valid bool
}

func NewDetail[T any](from, to int, value T) Detail[T] {
	return Detail[T]{From: from, To: to, Value: value, Valid: true}
}

// UnmarshalJSON. detail entries are encoded as [from, to, value]
func (d *Detail[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("path detail: want 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &d.From); err != nil {
		return fmt.Errorf("path detail from: %w", err)
	}
	if err := json.Unmarshal(raw[1], &d.To); err != nil {
		return fmt.Errorf("path detail to: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(raw[2]), []byte("null")) {
		d.Valid = false
		return nil
	}
	if err := json.Unmarshal(raw[2], &d.Value); err != nil {
		return fmt.Errorf("path detail value: %w", err)
	}
	d.Valid = true
	return nil
}

func (d Detail[T]) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return json.Marshal([]any{d.From, d.To, nil})
	}
	return json.Marshal([]any{d.From, d.To, d.Value})
}

func detailAt[T any](details []Detail[T], pointIndex int) (T, bool) {
	var zero T
	for _, d := range details {
		if pointIndex >= d.From && (pointIndex < d.To || (d.From == d.To && pointIndex == d.From)) {
			if !d.Valid {
				return zero, false
			}
			return d.Value, true
		}
	}
	return zero, false
}
