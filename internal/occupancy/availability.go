package occupancy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/store"
)

// IsBedFree reports whether no RESERVED or CHECKED_IN occupancy of the bed overlaps
// [start, end). A nil end is an open-ended request. It is a plain read: operations that
// write re-check inside their own transaction.
func (s *Service) IsBedFree(ctx context.Context, bedID int64, start time.Time, end *time.Time) (bool, error) {
	if start.IsZero() {
		return false, validationError("start date is required")
	}
	start, end = Day(start), dayPtr(end)
	if end != nil && start.After(*end) {
		return false, validationError("start date %s is after end date %s", start.Format(DateLayout), end.Format(DateLayout))
	}
	if _, err := s.store.GetBed(ctx, bedID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, notFoundError("bed", bedID)
		}
		return false, s.classify("AVAILABILITY", err)
	}
	clashes, err := s.store.FindOverlapping(ctx, store.OverlapQuery{BedID: &bedID, Start: start, End: end})
	if err != nil {
		return false, s.classify("AVAILABILITY", err)
	}
	return len(clashes) == 0, nil
}

// BedWithOccupancy is a bed together with what holds it on a given date.
type BedWithOccupancy struct {
	Bed model.Bed `json:"bed"`
	// Current is the RESERVED or CHECKED_IN stay covering the date.
	Current *model.Occupancy `json:"current"`
	// Upcoming holds later stays and pending requests that have not ended by the date.
	Upcoming  []model.Occupancy `json:"upcoming"`
	Available bool              `json:"available"`
}

// BedsWithOccupancy lists the beds of a room with their occupancy on the given date.
func (s *Service) BedsWithOccupancy(ctx context.Context, roomID int64, on time.Time) ([]BedWithOccupancy, error) {
	if on.IsZero() {
		on = s.today()
	}
	on = Day(on)
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("room", roomID)
		}
		return nil, s.classify("BEDS", err)
	}

	beds, err := s.store.ListBeds(ctx, roomID)
	if err != nil {
		return nil, s.classify("BEDS", err)
	}
	bedIDs := make([]int64, len(beds))
	for i, b := range beds {
		bedIDs[i] = b.ID
	}
	open, err := s.store.ListOpenOccupancies(ctx, bedIDs, on)
	if err != nil {
		return nil, s.classify("BEDS", err)
	}

	byBed := make(map[int64][]model.Occupancy, len(beds))
	for _, o := range open {
		byBed[o.BedID] = append(byBed[o.BedID], o)
	}

	result := make([]BedWithOccupancy, 0, len(beds))
	for _, b := range beds {
		entry := BedWithOccupancy{Bed: b, Upcoming: []model.Occupancy{}}
		for _, o := range byBed[b.ID] {
			if o.Status.Active() && !o.CheckInDate.After(on) && entry.Current == nil {
				current := o
				entry.Current = &current
				continue
			}
			entry.Upcoming = append(entry.Upcoming, o)
		}
		entry.Available = b.Bookable() && entry.Current == nil
		result = append(result, entry)
	}
	return result, nil
}

// placement describes where an occupancy wants to be.
type placement struct {
	bed      model.Bed
	occupant model.Occupant
	start    time.Time
	end      *time.Time
	// exclude lists records that must not count against the placement (the record
	// itself, or the source of a transfer).
	exclude []int64
	// checkOccupant also rejects other active stays of the same occupant.
	checkOccupant bool
}

// checkPlacement runs the policy checks after the bed is known to exist and be bookable:
// gender policy, bed conflicts, occupant double booking, then room capacity.
func checkPlacement(tx store.Tx, p placement) error {
	policy := p.bed.Room.EffectiveGenderPolicy()
	if !policy.Admits(p.occupant.Gender) {
		return newError(KindGenderPolicyViolation, "room %s accepts %s occupants only; %s is %s",
			roomLabel(p.bed.Room), policy, p.occupant.Name, p.occupant.Gender)
	}

	bedID := p.bed.ID
	clashes, err := tx.FindOverlapping(store.OverlapQuery{BedID: &bedID, Start: p.start, End: p.end, ExcludeIDs: p.exclude})
	if err != nil {
		return err
	}
	if len(clashes) > 0 {
		return bedConflict(p.bed, clashes[0])
	}

	if p.checkOccupant {
		occupantID := p.occupant.ID
		own, err := tx.FindOverlapping(store.OverlapQuery{OccupantID: &occupantID, Start: p.start, End: p.end, ExcludeIDs: p.exclude})
		if err != nil {
			return err
		}
		if len(own) > 0 {
			return occupantConflict(p.occupant, own[0])
		}
	}

	if capacity := p.bed.Room.Capacity; capacity > 0 {
		roomID := p.bed.RoomID
		n, err := tx.CountOverlapping(store.OverlapQuery{RoomID: &roomID, Start: p.start, End: p.end, ExcludeIDs: p.exclude})
		if err != nil {
			return err
		}
		if n >= int64(capacity) {
			return newError(KindCapacityExceeded, "room %s is at its capacity of %d %s",
				roomLabel(p.bed.Room), capacity, describeRange(p.start, p.end))
		}
	}

	return nil
}

func roomLabel(r model.Room) string {
	if r.Code != "" {
		return r.Code
	}
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("#%d", r.ID)
}
