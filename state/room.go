package state

import "time"

// RoomSnapshot is a point-in-time copy of a meeting room, safe to hand
// to callers outside the room's lock.
type RoomSnapshot struct {
	Booking   *BookingSnapshot `json:"booking,omitempty"`
	Devices   map[string]bool  `json:"devices"`
	ID        int              `json:"id"`
	Capacity  int              `json:"capacity"`
	Occupants int              `json:"occupants"`
	Occupied  bool             `json:"occupied"`
}

type BookingSnapshot struct {
	CreatedAt       time.Time `json:"created_at"`
	Ref             string    `json:"ref"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}
