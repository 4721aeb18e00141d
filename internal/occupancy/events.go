package occupancy

import (
	"time"

	"dorm-occupancy-backend/internal/model"
)

// Change describes a committed state change.
type Change struct {
	Action    model.Action
	Occupancy model.Occupancy
	// Related is the closed source record of a transfer.
	Related *model.Occupancy
	Actor   Actor
	Reason  string
	Flags   string
	At      time.Time
}

// Notifier receives committed changes. Implementations must not block.
type Notifier interface {
	Notify(c Change)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Change) {}
