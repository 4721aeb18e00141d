package occupancy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/store"
)

// Assign places an occupant on a bed for [CheckInDate, CheckOutDate). The record starts
// RESERVED, or PENDING when in.Status asks for a booking request.
//
// Checks run in order and stop at the first failure: bed exists and is bookable,
// occupant exists, gender policy, date sanity, occupant double booking, room capacity,
// bed conflict. The checks and the insert share one transaction.
func (s *Service) Assign(ctx context.Context, in AssignInput, actor Actor) (model.Occupancy, error) {
	var created model.Occupancy
	err := s.mutate(ctx, model.ActionAssign, actor, func(tx store.Tx) error {
		if err := checkStruct(in); err != nil {
			return err
		}
		ev := EventAssign
		if in.Status == model.StatusPending {
			ev = EventRequest
		}
		tr, err := next("", ev, actor)
		if err != nil {
			return err
		}

		bed, err := lockBookableBed(tx, in.BedID)
		if err != nil {
			return err
		}
		occupant, err := tx.FindOccupant(in.OccupantID)
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("occupant", in.OccupantID)
		}
		if err != nil {
			return err
		}

		policy := bed.Room.EffectiveGenderPolicy()
		if !policy.Admits(occupant.Gender) {
			return newError(KindGenderPolicyViolation, "room %s accepts %s occupants only; %s is %s",
				roomLabel(bed.Room), policy, occupant.Name, occupant.Gender)
		}

		if in.CheckInDate.IsZero() {
			return validationError("check-in date is required")
		}
		start, end := Day(in.CheckInDate), dayPtr(in.CheckOutDate)
		if end != nil && start.After(*end) {
			return validationError("check-in date %s is after check-out date %s", start.Format(DateLayout), end.Format(DateLayout))
		}

		if err := checkPlacement(tx, placement{bed: bed, occupant: occupant, start: start, end: end, checkOccupant: true}); err != nil {
			return err
		}

		o := model.Occupancy{
			Code:          uuid.NewString(),
			OccupantID:    occupant.ID,
			BedID:         bed.ID,
			RoomID:        bed.RoomID,
			CheckInDate:   start,
			CheckOutDate:  end,
			Status:        tr.To,
			Notes:         strings.TrimSpace(in.Notes),
			CreatedBy:     actor.ID,
			CreatedByName: actor.Name,
		}
		if err := tx.Insert(&o); err != nil {
			return err
		}
		o.Occupant = occupant

		if err := tx.AppendLog(&model.OccupancyLog{
			OccupancyID: o.ID,
			Action:      tr.Action,
			ToStatus:    o.Status,
			BedID:       o.BedID,
			RoomID:      o.RoomID,
			ActorID:     actor.ID,
			ActorName:   actor.Name,
			Details:     details(map[string]any{"occupantId": o.OccupantID, "checkInDate": o.CheckInDate, "checkOutDate": o.CheckOutDate}),
		}); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return model.Occupancy{}, err
	}
	s.emit(ctx, Change{Action: model.ActionAssign, Occupancy: created, Actor: actor})
	return created, nil
}

// Approve confirms a PENDING request, re-checking the bed inside the transaction.
func (s *Service) Approve(ctx context.Context, occupancyID int64, actor Actor) (model.Occupancy, error) {
	var updated model.Occupancy
	err := s.mutate(ctx, model.ActionApprove, actor, func(tx store.Tx) error {
		o, err := lockOccupancy(tx, occupancyID)
		if err != nil {
			return err
		}
		tr, err := next(o.Status, EventApprove, actor)
		if err != nil {
			return err
		}
		if err := s.recheckBed(tx, o); err != nil {
			return err
		}

		from := o.Status
		o.Status = tr.To
		if err := tx.Update(&o); err != nil {
			return err
		}
		if err := tx.AppendLog(transitionLog(o, tr.Action, from, actor, "", "")); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return model.Occupancy{}, err
	}
	s.emit(ctx, Change{Action: model.ActionApprove, Occupancy: updated, Actor: actor})
	return updated, nil
}

// CheckIn records the occupant's arrival. A PENDING record is approved implicitly, which
// is why the bed is re-checked in the same transaction.
func (s *Service) CheckIn(ctx context.Context, occupancyID int64, actor Actor) (model.Occupancy, error) {
	var updated model.Occupancy
	err := s.mutate(ctx, model.ActionCheckIn, actor, func(tx store.Tx) error {
		o, err := lockOccupancy(tx, occupancyID)
		if err != nil {
			return err
		}
		tr, err := next(o.Status, EventCheckIn, actor)
		if err != nil {
			return err
		}
		if err := s.recheckBed(tx, o); err != nil {
			return err
		}

		from := o.Status
		now := s.now()
		o.Status = tr.To
		o.ActualCheckInAt = &now
		if err := tx.Update(&o); err != nil {
			return err
		}
		if err := tx.AppendLog(transitionLog(o, tr.Action, from, actor, "", "")); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return model.Occupancy{}, err
	}
	s.emit(ctx, Change{Action: model.ActionCheckIn, Occupancy: updated, Actor: actor})
	return updated, nil
}

// CheckOut ends a stay. Leaving a scheduled stay before its check-out date needs
// in.Forced and a reason; the planned date is then pulled in to today. Indefinite stays
// can be closed on any date from their check-in date on.
func (s *Service) CheckOut(ctx context.Context, in CheckOutInput, actor Actor) (model.Occupancy, error) {
	var updated model.Occupancy
	var flags string
	err := s.mutate(ctx, model.ActionCheckOut, actor, func(tx store.Tx) error {
		if err := checkStruct(in); err != nil {
			return err
		}
		o, err := lockOccupancy(tx, in.OccupancyID)
		if err != nil {
			return err
		}
		tr, err := next(o.Status, EventCheckOut, actor)
		if err != nil {
			return err
		}

		today := s.today()
		early := today.Before(o.CheckInDate) || (o.CheckOutDate != nil && today.Before(*o.CheckOutDate))
		flags = ""
		if early {
			if !in.Forced || blank(in.Reason) {
				planned := "its check-in date " + o.CheckInDate.Format(DateLayout)
				if o.CheckOutDate != nil && !today.Before(o.CheckInDate) {
					planned = "the planned check-out date " + o.CheckOutDate.Format(DateLayout)
				}
				return validationError("checking out before %s requires forced=true and a reason", planned)
			}
			flags = model.FlagForcedCheckout
		}

		if early || o.CheckOutDate == nil {
			end := today
			if end.Before(o.CheckInDate) {
				end = o.CheckInDate
			}
			o.CheckOutDate = &end
		}

		from := o.Status
		now := s.now()
		o.Status = tr.To
		o.ActualCheckOutAt = &now
		if err := tx.Update(&o); err != nil {
			return err
		}
		if err := tx.AppendLog(transitionLog(o, tr.Action, from, actor, strings.TrimSpace(in.Reason), flags)); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return model.Occupancy{}, err
	}
	s.emit(ctx, Change{Action: model.ActionCheckOut, Occupancy: updated, Actor: actor, Reason: in.Reason, Flags: flags})
	return updated, nil
}

// CancelResult is the outcome of Cancel. H1 is set when a reservation was withdrawn the
// day before check-in, which callers surface as a warning.
type CancelResult struct {
	Occupancy model.Occupancy `json:"occupancy"`
	H1        bool            `json:"h1"`
}

// Cancel withdraws a PENDING request or a RESERVED stay. Reservations can only be
// cancelled at least one day before check-in; exactly one day before (H-1) a reason
// is mandatory. Requesters may only cancel their own pending requests.
func (s *Service) Cancel(ctx context.Context, in CancelInput, actor Actor) (CancelResult, error) {
	var res CancelResult
	err := s.mutate(ctx, model.ActionCancel, actor, func(tx store.Tx) error {
		if err := checkStruct(in); err != nil {
			return err
		}
		o, err := lockOccupancy(tx, in.OccupancyID)
		if err != nil {
			return err
		}
		tr, err := next(o.Status, EventCancel, actor)
		if err != nil {
			return err
		}
		if actor.Role == RoleRequester && o.CreatedBy != actor.ID {
			return newError(KindForbidden, "requesters may only cancel their own requests")
		}

		h1 := false
		if o.Status == model.StatusReserved {
			days := daysBetween(s.today(), o.CheckInDate)
			if days < 1 {
				return invalidTransition(o.Status, EventCancel,
					"reservations can only be cancelled at least one day before check-in ("+o.CheckInDate.Format(DateLayout)+")")
			}
			if days == 1 {
				h1 = true
				if blank(in.Reason) {
					return validationError("cancelling one day before check-in (H-1) requires a reason")
				}
			}
		}

		from := o.Status
		now := s.now()
		reason := strings.TrimSpace(in.Reason)
		o.Status = tr.To
		o.CancelledAt = &now
		o.CancelledBy = &actor.ID
		o.CancelledByName = &actor.Name
		o.CancelledReason = &reason
		if err := tx.Update(&o); err != nil {
			return err
		}
		flags := ""
		if h1 {
			flags = model.FlagH1
		}
		if err := tx.AppendLog(transitionLog(o, tr.Action, from, actor, reason, flags)); err != nil {
			return err
		}
		res = CancelResult{Occupancy: o, H1: h1}
		return nil
	})
	if err != nil {
		return CancelResult{}, err
	}
	flags := ""
	if res.H1 {
		flags = model.FlagH1
	}
	s.emit(ctx, Change{Action: model.ActionCancel, Occupancy: res.Occupancy, Actor: actor, Reason: in.Reason, Flags: flags})
	return res, nil
}

// MarkNoShow closes a reservation whose check-in date has passed without an arrival.
func (s *Service) MarkNoShow(ctx context.Context, in NoShowInput, actor Actor) (model.Occupancy, error) {
	var updated model.Occupancy
	err := s.mutate(ctx, model.ActionNoShow, actor, func(tx store.Tx) error {
		if err := checkStruct(in); err != nil {
			return err
		}
		o, err := lockOccupancy(tx, in.OccupancyID)
		if err != nil {
			return err
		}
		tr, err := next(o.Status, EventNoShow, actor)
		if err != nil {
			return err
		}
		if !s.today().After(o.CheckInDate) {
			return invalidTransition(o.Status, EventNoShow,
				"expected arrival on "+o.CheckInDate.Format(DateLayout)+" has not passed yet")
		}

		from := o.Status
		o.Status = tr.To
		if err := tx.Update(&o); err != nil {
			return err
		}
		if err := tx.AppendLog(transitionLog(o, tr.Action, from, actor, strings.TrimSpace(in.Reason), "")); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return model.Occupancy{}, err
	}
	s.emit(ctx, Change{Action: model.ActionNoShow, Occupancy: updated, Actor: actor, Reason: in.Reason})
	return updated, nil
}

// recheckBed verifies that o can hold its bed: used when a record starts to count as active.
func (s *Service) recheckBed(tx store.Tx, o model.Occupancy) error {
	bed, err := lockBookableBed(tx, o.BedID)
	if err != nil {
		return err
	}
	return checkPlacement(tx, placement{
		bed:           bed,
		occupant:      o.Occupant,
		start:         o.CheckInDate,
		end:           o.CheckOutDate,
		exclude:       []int64{o.ID},
		checkOccupant: o.Status == model.StatusPending,
	})
}

func transitionLog(o model.Occupancy, action model.Action, from model.OccupancyStatus, actor Actor, reason, flags string) *model.OccupancyLog {
	return &model.OccupancyLog{
		OccupancyID: o.ID,
		Action:      action,
		FromStatus:  statusPtr(from),
		ToStatus:    o.Status,
		BedID:       o.BedID,
		RoomID:      o.RoomID,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Reason:      reason,
		Flags:       flags,
	}
}

func details(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
