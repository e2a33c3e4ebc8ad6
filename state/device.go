package state

import (
	"github.com/rs/zerolog"
)

type EventKind int

const ( //event kinds
	ActuatorChanged EventKind = iota
	BookingReleased
)

func (k EventKind) String() string {
	switch k {
	case ActuatorChanged:
		return "actuator"
	case BookingReleased:
		return "booking_released"
	default:
		return "unknown"
	}
}

// Event is a single occurrence worth telling the outside world about.
// Device and On are only meaningful for ActuatorChanged.
type Event struct {
	Message string    `json:"message"`
	Device  string    `json:"device,omitempty"`
	Kind    EventKind `json:"-"`
	Room    int       `json:"room"`
	On      bool      `json:"on"`
}

// Sink consumes events. Implementations must not block; they are called
// while a room is locked.
type Sink interface {
	Publish(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Fanout delivers every event to each sink in order.
type Fanout []Sink

func (f Fanout) Publish(e Event) {
	for _, s := range f {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Publish(e Event) {
	entry := s.Logger.Info().Int("room", e.Room).Str("kind", e.Kind.String())
	if e.Kind == ActuatorChanged {
		entry = entry.Str("device", e.Device).Bool("on", e.On)
	}
	entry.Msg(e.Message)
}
