package office

import (
	"fmt"

	"github.com/elijahnyp/smart_office/state"
)

// Observer reacts to a room switching between occupied and unoccupied.
type Observer interface {
	Update(occupied bool)
}

type ActuatorKind int

const (
	Light ActuatorKind = iota
	AirConditioner
)

func (k ActuatorKind) Label() string {
	switch k {
	case Light:
		return "Light"
	case AirConditioner:
		return "AC"
	default:
		return "Device"
	}
}

// Actuator is an on/off device driven by room occupancy. It only reports
// transitions; repeating the current state is silent.
type Actuator struct {
	sink state.Sink
	kind ActuatorKind
	room int
	on   bool
}

func newActuator(kind ActuatorKind, room int, sink state.Sink) *Actuator {
	return &Actuator{kind: kind, room: room, sink: sink}
}

func (a *Actuator) Kind() ActuatorKind { return a.kind }

func (a *Actuator) On() bool { return a.on }

func (a *Actuator) Update(occupied bool) {
	if occupied == a.on {
		return
	}
	a.on = occupied
	a.sink.Publish(state.Event{
		Kind:    state.ActuatorChanged,
		Room:    a.room,
		Device:  a.kind.Label(),
		On:      a.on,
		Message: fmt.Sprintf("%s in room %d %s", a.kind.Label(), a.room, onOff(a.on)),
	})
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
