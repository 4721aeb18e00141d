package store

import (
	"errors"
	"time"

	"dorm-occupancy-backend/internal/model"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the database rejected a commit because a concurrent
	// transaction won: serialization failure, deadlock or overlap constraint.
	ErrConflict = errors.New("concurrent update conflict")
)

// OverlapQuery selects occupancies whose interval overlaps [Start, End).
// A nil End is unbounded. At least one of BedID, OccupantID or RoomID should be set.
type OverlapQuery struct {
	BedID      *int64
	OccupantID *int64
	RoomID     *int64
	Start      time.Time
	End        *time.Time
	ExcludeIDs []int64
	// Statuses defaults to model.ActiveStatuses.
	Statuses []model.OccupancyStatus
}

func (q OverlapQuery) statuses() []model.OccupancyStatus {
	if len(q.Statuses) == 0 {
		return model.ActiveStatuses
	}
	return q.Statuses
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect; nil ends are +inf.
func Overlaps(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	aBeforeBEnd := bEnd == nil || aStart.Before(*bEnd)
	bBeforeAEnd := aEnd == nil || bStart.Before(*aEnd)
	return aBeforeBEnd && bBeforeAEnd
}

func (q OverlapQuery) matches(o model.Occupancy) bool {
	if q.BedID != nil && o.BedID != *q.BedID {
		return false
	}
	if q.OccupantID != nil && o.OccupantID != *q.OccupantID {
		return false
	}
	if q.RoomID != nil && o.RoomID != *q.RoomID {
		return false
	}
	for _, id := range q.ExcludeIDs {
		if o.ID == id {
			return false
		}
	}
	statusOK := false
	for _, s := range q.statuses() {
		if o.Status == s {
			statusOK = true
			break
		}
	}
	return statusOK && Overlaps(q.Start, q.End, o.CheckInDate, o.CheckOutDate)
}

// HistoryQuery filters and pages the audit log of a room.
type HistoryQuery struct {
	Actions []model.Action
	From    *time.Time // inclusive
	To      *time.Time // exclusive
	Offset  int
	Limit   int
}
