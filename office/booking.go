package office

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay counts minutes since midnight. Values past 23:59 are allowed
// for the end of an interval that runs over midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

// MaxBookingMinutes caps a single booking at one day.
const MaxBookingMinutes = minutesPerDay

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// Valid reports whether t falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < minutesPerDay
}

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	m := int(t) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Booking is an immutable reservation interval. Replace it, never modify it.
type Booking struct {
	ref      uuid.UUID
	start    TimeOfDay
	duration int
}

func NewBooking(start TimeOfDay, durationMinutes int) Booking {
	return Booking{
		ref:      uuid.New(),
		start:    start,
		duration: durationMinutes,
	}
}

func (b Booking) Ref() uuid.UUID       { return b.ref }
func (b Booking) Start() TimeOfDay     { return b.start }
func (b Booking) DurationMinutes() int { return b.duration }
func (b Booking) End() TimeOfDay       { return b.start.Add(b.duration) }

// ConflictsWith reports whether [start, start+duration] overlaps this
// booking. Intervals that only touch at an endpoint conflict.
func (b Booking) ConflictsWith(start TimeOfDay, durationMinutes int) bool {
	newEnd := start.Add(durationMinutes)
	return !(newEnd < b.start || start > b.End())
}

func (b Booking) Summary() string {
	return fmt.Sprintf("%s for %dmin", b.start, b.duration)
}
