package office

import (
	"fmt"
	"sync"
	"time"

	"github.com/elijahnyp/smart_office/state"
	"github.com/rs/zerolog"
)

// roomSettings are shared by every room an office creates.
type roomSettings struct {
	clock           Clock
	sink            state.Sink
	logger          zerolog.Logger
	capacity        int
	activeThreshold int
	releaseAfter    time.Duration
}

// MeetingRoom owns its booking, occupancy and actuators. Every exported
// method takes the room lock.
type MeetingRoom struct {
	mu        sync.Mutex
	settings  *roomSettings
	booking   *Booking
	bookedAt  time.Time // zero iff booking is nil
	observers []Observer
	id        int
	capacity  int
	occupants int
}

func newMeetingRoom(id int, settings *roomSettings) *MeetingRoom {
	r := &MeetingRoom{
		id:       id,
		settings: settings,
		capacity: settings.capacity,
	}
	r.observers = []Observer{
		newActuator(Light, id, settings.sink),
		newActuator(AirConditioner, id, settings.sink),
	}
	return r
}

func (r *MeetingRoom) ID() int { return r.id }

// SetMaxCapacity overwrites the capacity without checking the current
// head count; a room may sit above a lowered capacity until occupants
// are next written.
func (r *MeetingRoom) SetMaxCapacity(capacity int) Result {
	if capacity <= 0 {
		return invalid("Invalid capacity %d for room %d.", capacity, r.id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capacity = capacity
	if r.occupants > capacity {
		r.settings.logger.Warn().Int("room", r.id).Int("occupants", r.occupants).Int("capacity", capacity).
			Msg("capacity lowered below current occupancy")
	}
	return ok("Room %d maximum capacity set to %d.", r.id, capacity)
}

func (r *MeetingRoom) Block(start TimeOfDay, durationMinutes int) Result {
	if durationMinutes <= 0 || durationMinutes > MaxBookingMinutes {
		return invalid("Invalid duration %d for room %d.", durationMinutes, r.id)
	}
	if !start.Valid() {
		return invalid("Invalid start time %d for room %d.", int(start), r.id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booking != nil && r.booking.ConflictsWith(start, durationMinutes) {
		return Result{Outcome: Conflict, Message: fmt.Sprintf("Room %d is already booked.", r.id)}
	}
	if r.booking != nil {
		r.settings.logger.Debug().Int("room", r.id).Str("previous", r.booking.Summary()).Msg("replacing booking")
	}
	b := NewBooking(start, durationMinutes)
	r.booking = &b
	r.bookedAt = r.settings.clock.Now()
	r.settings.logger.Debug().Int("room", r.id).Str("ref", b.Ref().String()).Msgf("booked %s", b.Summary())
	return ok("Room %d booked.", r.id)
}

func (r *MeetingRoom) Cancel() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booking == nil {
		return Result{Outcome: NotBooked, Message: fmt.Sprintf("Room %d is not booked.", r.id)}
	}
	r.release()
	return ok("Booking cancelled for room %d", r.id)
}

func (r *MeetingRoom) SetOccupants(count int) Result {
	if count < 0 {
		return invalid("Invalid occupant count %d for room %d.", count, r.id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if count > r.capacity {
		return Result{Outcome: CapacityExceeded, Message: "Capacity exceeded"}
	}
	r.occupants = count
	r.notify()
	return ok("Room %d occupants set to %d", r.id, count)
}

// notify must be called with the lock held.
func (r *MeetingRoom) notify() {
	occupied := r.occupants >= r.settings.activeThreshold
	for _, o := range r.observers {
		o.Update(occupied)
	}
}

// AutoRelease drops the booking when nobody has shown up for
// releaseAfter since it was made. It reports whether it fired.
func (r *MeetingRoom) AutoRelease(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.booking == nil || r.occupants != 0 {
		return false
	}
	if now.Sub(r.bookedAt) < r.settings.releaseAfter {
		return false
	}
	r.release()
	r.settings.sink.Publish(state.Event{
		Kind:    state.BookingReleased,
		Room:    r.id,
		Message: fmt.Sprintf("Room %d booking auto-released.", r.id),
	})
	return true
}

func (r *MeetingRoom) release() {
	r.booking = nil
	r.bookedAt = time.Time{}
}

func (r *MeetingRoom) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	booked := "No"
	if r.booking != nil {
		booked = r.booking.Summary()
	}
	return fmt.Sprintf("Room %d | Capacity: %d | Occupants: %d | Booked: %s", r.id, r.capacity, r.occupants, booked)
}

func (r *MeetingRoom) Snapshot() state.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := state.RoomSnapshot{
		ID:        r.id,
		Capacity:  r.capacity,
		Occupants: r.occupants,
		Occupied:  r.occupants >= r.settings.activeThreshold,
		Devices:   make(map[string]bool, len(r.observers)),
	}
	for _, o := range r.observers {
		if a, isActuator := o.(*Actuator); isActuator {
			snap.Devices[a.Kind().Label()] = a.On()
		}
	}
	if r.booking != nil {
		snap.Booking = &state.BookingSnapshot{
			Ref:             r.booking.Ref().String(),
			Start:           r.booking.Start().String(),
			End:             r.booking.End().String(),
			DurationMinutes: r.booking.DurationMinutes(),
			CreatedAt:       r.bookedAt,
		}
	}
	return snap
}
