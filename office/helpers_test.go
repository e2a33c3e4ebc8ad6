package office

import (
	"sync"
	"time"

	"github.com/elijahnyp/smart_office/state"
	"github.com/rs/zerolog"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// recordingSink keeps every event it is handed.
type recordingSink struct {
	mu     sync.Mutex
	events []state.Event
}

func (s *recordingSink) Publish(e state.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) Events() []state.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]state.Event(nil), s.events...)
}

func (s *recordingSink) Messages() []string {
	var msgs []string
	for _, e := range s.Events() {
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func (s *recordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func newTestOffice(rooms int) (*Office, *ManualClock, *recordingSink) {
	clock := NewManualClock(epoch)
	sink := &recordingSink{}
	o := New(Options{Clock: clock, Sink: sink, Logger: zerolog.Nop()})
	if err := o.ConfigureRooms(rooms); err != nil {
		panic(err)
	}
	return o, clock, sink
}

func newTestRoom() (*MeetingRoom, *ManualClock, *recordingSink) {
	clock := NewManualClock(epoch)
	sink := &recordingSink{}
	settings := &roomSettings{
		clock:           clock,
		sink:            sink,
		logger:          zerolog.Nop(),
		capacity:        DefaultCapacity,
		activeThreshold: DefaultActiveThreshold,
		releaseAfter:    DefaultReleaseAfter,
	}
	return newMeetingRoom(1, settings), clock, sink
}
