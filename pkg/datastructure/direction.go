package datastructure

import (
	"fmt"
	"strings"
)

// turn signs of the routing backend
const (
	U_TURN_UNKNOWN     = -98
	U_TURN_LEFT        = -8
	KEEP_LEFT          = -7
	LEAVE_ROUNDABOUT   = -6
	TURN_SHARP_LEFT    = -3
	TURN_LEFT          = -2
	TURN_SLIGHT_LEFT   = -1
	CONTINUE_ON_STREET = 0
	TURN_SLIGHT_RIGHT  = 1
	TURN_RIGHT         = 2
	TURN_SHARP_RIGHT   = 3
	FINISH             = 4
	REACHED_VIA        = 5
	USE_ROUNDABOUT     = 6
	KEEP_RIGHT         = 7
	U_TURN_RIGHT       = 8
)

// Instruction. one maneuver of a Path. interval is the [from, to] range of Path points the
// instruction covers, the maneuver itself happens at points[from].
type Instruction struct {
	turnSign   int
	text       string
	streetname string
	interval   [2]int
	distance   float64 // meter
	time       float64 // millisecond
	exitNumber int
}

func NewInstruction(sign int, text, streetName string, from, to int, distance, time float64) Instruction {
	return Instruction{
		turnSign:   sign,
		text:       text,
		streetname: streetName,
		interval:   [2]int{from, to},
		distance:   distance,
		time:       time,
	}
}

// WithExitNumber. copy of ins taking roundabout exit n
func (ins Instruction) WithExitNumber(n int) Instruction {
	ins.exitNumber = n
	return ins
}

func (ins *Instruction) GetTurnSign() int {
	return ins.turnSign
}

// GetText. display text from the routing backend, falls back to a generated description
func (ins *Instruction) GetText() string {
	if !isEmpty(ins.text) {
		return ins.text
	}
	return ins.GetTurnDescription()
}

func (ins *Instruction) GetStreetName() string {
	return ins.streetname
}

func (ins *Instruction) GetInterval() (int, int) {
	return ins.interval[0], ins.interval[1]
}

func (ins *Instruction) GetDistance() float64 {
	return ins.distance
}

func (ins *Instruction) GetTime() float64 {
	return ins.time
}

func (ins *Instruction) GetExitNumber() int {
	return ins.exitNumber
}

// IsWaypoint. the instruction ends a leg at a snapped waypoint
func (ins *Instruction) IsWaypoint() bool {
	return ins.turnSign == REACHED_VIA || ins.turnSign == FINISH
}

func (ins *Instruction) GetTurnType() string {
	_, turnType := getDirectionDescription(ins.turnSign, ins.exitNumber)
	return turnType
}

func (instr *Instruction) GetTurnDescription() string {

	streetName := instr.GetStreetName()
	sign := instr.GetTurnSign()
	var description string

	switch sign {
	case CONTINUE_ON_STREET:
		if isEmpty(streetName) {
			description = "Continue"
		} else {
			description = fmt.Sprintf("Continue onto %s", streetName)
		}
	case FINISH:
		description = "Arrive at destination"
	case REACHED_VIA:
		description = "Arrive at waypoint"
	default:
		dir, _ := getDirectionDescription(sign, instr.exitNumber)
		if dir == "" {
			description = fmt.Sprintf("unknown %d", sign)
		} else {
			if isEmpty(streetName) {
				description = dir
			} else {
				switch dir {
				case "Keep left", "Keep right":
					description = fmt.Sprintf("%s to continue on %s", dir, streetName)
				default:
					description = fmt.Sprintf("%s onto %s", dir, streetName)
				}
			}
		}
	}

	return description
}

func isEmpty(str string) bool {
	return strings.TrimSpace(str) == ""
}

func getDirectionDescription(sign int, exitNumber int) (string, string) {
	switch sign {
	case U_TURN_UNKNOWN:
		return "Make U-turn", "U_TURN_UNKNOWN"
	case U_TURN_RIGHT:
		return "Make U-turn right", "U_TURN_RIGHT"
	case U_TURN_LEFT:
		return "Make U-turn left", "U_TURN_LEFT"
	case KEEP_LEFT:
		return "Keep left", "KEEP_LEFT"
	case LEAVE_ROUNDABOUT:
		return "Leave the roundabout", "LEAVE_ROUNDABOUT"
	case TURN_SHARP_LEFT:
		return "Turn sharp left", "TURN_SHARP_LEFT"
	case TURN_LEFT:
		return "Turn left", "TURN_LEFT"
	case TURN_SLIGHT_LEFT:
		return "Turn slight left", "TURN_SLIGHT_LEFT"
	case CONTINUE_ON_STREET:
		return "Continue", "CONTINUE_ON_STREET"
	case TURN_SLIGHT_RIGHT:
		return "Turn slight right", "TURN_SLIGHT_RIGHT"
	case TURN_RIGHT:
		return "Turn right", "TURN_RIGHT"
	case TURN_SHARP_RIGHT:
		return "Turn sharp right", "TURN_SHARP_RIGHT"
	case FINISH:
		return "Arrive at destination", "FINISH"
	case REACHED_VIA:
		return "Arrive at waypoint", "REACHED_VIA"
	case KEEP_RIGHT:
		return "Keep right", "KEEP_RIGHT"
	case USE_ROUNDABOUT:
		if exitNumber <= 0 {
			return "Enter the roundabout", "USE_ROUNDABOUT"
		}
		return fmt.Sprintf("At roundabout, take exit %d", exitNumber), "USE_ROUNDABOUT"
	default:
		return "", ""
	}
}
