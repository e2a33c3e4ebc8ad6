package office

import "fmt"

// Outcome classifies the result of an office operation. None of these
// are faults; callers branch on them.
type Outcome int

const (
	OK Outcome = iota
	NotFound
	Conflict
	NotBooked
	CapacityExceeded
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case NotBooked:
		return "not_booked"
	case CapacityExceeded:
		return "capacity_exceeded"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

type Result struct {
	Message string
	Outcome Outcome
}

func (r Result) String() string { return r.Message }

func (r Result) Succeeded() bool { return r.Outcome == OK }

func ok(format string, args ...any) Result {
	return Result{Outcome: OK, Message: fmt.Sprintf(format, args...)}
}

func notFound(id int) Result {
	return Result{Outcome: NotFound, Message: fmt.Sprintf("Room %d does not exist.", id)}
}

func invalid(format string, args ...any) Result {
	return Result{Outcome: Invalid, Message: fmt.Sprintf(format, args...)}
}
