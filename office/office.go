// Package office tracks meeting-room bookings and occupancy, drives each
// room's actuators from its head count and reclaims bookings nobody
// turned up for.
package office

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/elijahnyp/smart_office/state"
	"github.com/rs/zerolog"
)

const (
	DefaultCapacity        = 10
	DefaultActiveThreshold = 2
	DefaultReleaseAfter    = 5 * time.Minute

	MaxRooms = 1000
)

type Options struct {
	Clock  Clock
	Sink   state.Sink
	Logger zerolog.Logger
	// Capacity of freshly configured rooms.
	DefaultCapacity int
	// Occupant count at which a room's actuators switch on.
	ActiveThreshold int
	// How long an unattended booking survives before the sweep drops it.
	ReleaseAfter time.Duration
}

// Office is the registry of meeting rooms. Room lookups and the sweep
// share a read lock; only ConfigureRooms takes it exclusively.
type Office struct {
	mu       sync.RWMutex
	rooms    map[int]*MeetingRoom
	settings *roomSettings
}

func New(opts Options) *Office {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Sink == nil {
		opts.Sink = state.Discard
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = DefaultCapacity
	}
	if opts.ActiveThreshold <= 0 {
		opts.ActiveThreshold = DefaultActiveThreshold
	}
	if opts.ReleaseAfter <= 0 {
		opts.ReleaseAfter = DefaultReleaseAfter
	}
	return &Office{
		rooms: make(map[int]*MeetingRoom),
		settings: &roomSettings{
			clock:           opts.Clock,
			sink:            opts.Sink,
			logger:          opts.Logger,
			capacity:        opts.DefaultCapacity,
			activeThreshold: opts.ActiveThreshold,
			releaseAfter:    opts.ReleaseAfter,
		},
	}
}

// ConfigureRooms throws away every room and creates rooms 1..count.
func (o *Office) ConfigureRooms(count int) error {
	if count <= 0 {
		return fmt.Errorf("room count must be positive, got %d", count)
	}
	if count > MaxRooms {
		return fmt.Errorf("room count %d exceeds the limit of %d", count, MaxRooms)
	}
	rooms := make(map[int]*MeetingRoom, count)
	for id := 1; id <= count; id++ {
		rooms[id] = newMeetingRoom(id, o.settings)
	}
	o.mu.Lock()
	previous := len(o.rooms)
	o.rooms = rooms
	o.mu.Unlock()
	o.settings.logger.Info().Int("previous", previous).Int("rooms", count).Msg("rooms configured")
	return nil
}

func (o *Office) RoomCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.rooms)
}

// Rooms returns the configured room ids in ascending order.
func (o *Office) Rooms() []int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sortedIDs()
}

func (o *Office) sortedIDs() []int {
	ids := make([]int, 0, len(o.rooms))
	for id := range o.rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (o *Office) withRoom(id int, fn func(*MeetingRoom) Result) Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, exists := o.rooms[id]
	if !exists {
		return notFound(id)
	}
	return fn(r)
}

func (o *Office) SetRoomCapacity(id, capacity int) Result {
	return o.withRoom(id, func(r *MeetingRoom) Result {
		return r.SetMaxCapacity(capacity)
	})
}

func (o *Office) BlockRoom(id int, start TimeOfDay, durationMinutes int) Result {
	return o.withRoom(id, func(r *MeetingRoom) Result {
		return r.Block(start, durationMinutes)
	})
}

func (o *Office) CancelRoom(id int) Result {
	return o.withRoom(id, func(r *MeetingRoom) Result {
		return r.Cancel()
	})
}

// AddOccupant sets the head count of a room; it does not add to it.
func (o *Office) AddOccupant(id, count int) Result {
	return o.withRoom(id, func(r *MeetingRoom) Result {
		return r.SetOccupants(count)
	})
}

func (o *Office) RoomStatus(id int) Result {
	return o.withRoom(id, func(r *MeetingRoom) Result {
		return ok("%s", r.Status())
	})
}

func (o *Office) Snapshot(id int) (state.RoomSnapshot, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, exists := o.rooms[id]
	if !exists {
		return state.RoomSnapshot{}, false
	}
	return r.Snapshot(), true
}

func (o *Office) Snapshots() []state.RoomSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	snaps := make([]state.RoomSnapshot, 0, len(o.rooms))
	for _, id := range o.sortedIDs() {
		snaps = append(snaps, o.rooms[id].Snapshot())
	}
	return snaps
}

// Sweep runs the auto-release check on every room, one room lock at a
// time, and returns how many bookings were released. A failing room is
// logged and skipped.
func (o *Office) Sweep(now time.Time) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	released := 0
	for _, id := range o.sortedIDs() {
		if o.sweepRoom(o.rooms[id], now) {
			released++
		}
	}
	return released
}

func (o *Office) sweepRoom(r *MeetingRoom, now time.Time) (released bool) {
	defer func() {
		if rec := recover(); rec != nil {
			o.settings.logger.Error().Int("room", r.ID()).Msgf("auto-release check failed: %v", rec)
			released = false
		}
	}()
	return r.AutoRelease(now)
}
