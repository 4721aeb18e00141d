package occupancy

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/store"
)

// TransferResult holds both halves of a transfer.
type TransferResult struct {
	// Closed is the source record, ended at the effective date.
	Closed model.Occupancy `json:"closed"`
	// Created continues the stay on the target bed from the effective date.
	Created model.Occupancy `json:"created"`
}

// Transfer moves a RESERVED or CHECKED_IN occupancy to another bed. The source is closed
// at the effective date and a linked record is opened on the target bed with the same
// status and planned end. Both writes and the audit entry commit together or not at all.
//
// A reservation moved before it starts keeps its own check-in date, so the effective
// date is pulled forward to it and the source ends up cancelled rather than checked out.
func (s *Service) Transfer(ctx context.Context, in TransferInput, actor Actor) (TransferResult, error) {
	var res TransferResult
	err := s.mutate(ctx, model.ActionTransfer, actor, func(tx store.Tx) error {
		if err := checkStruct(in); err != nil {
			return err
		}
		if blank(in.Reason) {
			return validationError("a reason is required for transfers")
		}
		if in.EffectiveDate.IsZero() {
			return validationError("effective date is required")
		}

		src, err := lockOccupancy(tx, in.OccupancyID)
		if err != nil {
			return err
		}
		tr, err := next(src.Status, EventTransfer, actor)
		if err != nil {
			return err
		}
		if in.ToBedID == src.BedID {
			return validationError("occupancy %d is already on bed %d", src.ID, src.BedID)
		}

		start := Day(in.EffectiveDate)
		if src.Status == model.StatusCheckedIn && start.Before(src.CheckInDate) {
			return validationError("effective date %s is before check-in date %s",
				start.Format(DateLayout), src.CheckInDate.Format(DateLayout))
		}
		if start.Before(src.CheckInDate) {
			start = src.CheckInDate
		}
		if src.CheckOutDate != nil && !start.Before(*src.CheckOutDate) {
			return validationError("effective date %s is not before check-out date %s",
				start.Format(DateLayout), src.CheckOutDate.Format(DateLayout))
		}

		target, err := lockBookableBed(tx, in.ToBedID)
		if err != nil {
			return err
		}
		if err := checkPlacement(tx, placement{
			bed:      target,
			occupant: src.Occupant,
			start:    start,
			end:      src.CheckOutDate,
			exclude:  []int64{src.ID},
		}); err != nil {
			return err
		}

		now := s.now()
		reason := strings.TrimSpace(in.Reason)
		created := model.Occupancy{
			Code:              uuid.NewString(),
			OccupantID:        src.OccupantID,
			BedID:             target.ID,
			RoomID:            target.RoomID,
			CheckInDate:       start,
			CheckOutDate:      copyTime(src.CheckOutDate),
			Status:            src.Status,
			Notes:             src.Notes,
			CreatedBy:         actor.ID,
			CreatedByName:     actor.Name,
			TransferredFromID: &src.ID,
		}
		if src.Status == model.StatusCheckedIn {
			created.ActualCheckInAt = &now
		}
		if err := tx.Insert(&created); err != nil {
			return err
		}
		created.Occupant = src.Occupant

		closed := src
		closed.Status = tr.To
		closed.TransferredToID = &created.ID
		end := start
		closed.CheckOutDate = &end
		if src.Status == model.StatusCheckedIn {
			closed.ActualCheckOutAt = &now
		} else {
			cancelReason := "transferred to bed " + bedLabel(target) + ": " + reason
			closed.CancelledAt = &now
			closed.CancelledBy = &actor.ID
			closed.CancelledByName = &actor.Name
			closed.CancelledReason = &cancelReason
		}
		if err := tx.Update(&closed); err != nil {
			return err
		}

		fromBed, fromRoom := src.BedID, src.RoomID
		if err := tx.AppendLog(&model.OccupancyLog{
			OccupancyID:        created.ID,
			RelatedOccupancyID: &closed.ID,
			Action:             tr.Action,
			FromStatus:         statusPtr(src.Status),
			ToStatus:           created.Status,
			BedID:              created.BedID,
			RoomID:             created.RoomID,
			FromBedID:          &fromBed,
			FromRoomID:         &fromRoom,
			ActorID:            actor.ID,
			ActorName:          actor.Name,
			Reason:             reason,
			Details: details(map[string]any{
				"effectiveDate": start,
				"closedStatus":  closed.Status,
			}),
		}); err != nil {
			return err
		}

		res = TransferResult{Closed: closed, Created: created}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	closed := res.Closed
	s.emit(ctx, Change{Action: model.ActionTransfer, Occupancy: res.Created, Related: &closed, Actor: actor, Reason: in.Reason})
	return res, nil
}
