package occupancy

import (
	"context"
	"errors"

	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// HistoryPage is one page of a room's audit trail, newest first.
type HistoryPage struct {
	Entries  []model.OccupancyLog `json:"entries"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// RoomHistory returns the audit entries of a room, including transfers out of it.
// From is inclusive and To exclusive.
func (s *Service) RoomHistory(ctx context.Context, roomID int64, f HistoryFilter) (HistoryPage, error) {
	if err := checkStruct(f); err != nil {
		return HistoryPage{}, err
	}
	for _, a := range f.Actions {
		if !a.Valid() {
			return HistoryPage{}, validationError("unknown action %q", a)
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return HistoryPage{}, validationError("history range ends before it starts")
	}

	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return HistoryPage{}, notFoundError("room", roomID)
		}
		return HistoryPage{}, s.classify("HISTORY", err)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	entries, total, err := s.store.RoomHistory(ctx, roomID, store.HistoryQuery{
		Actions: f.Actions,
		From:    f.From,
		To:      f.To,
		Offset:  (page - 1) * size,
		Limit:   size,
	})
	if err != nil {
		return HistoryPage{}, s.classify("HISTORY", err)
	}
	if entries == nil {
		entries = []model.OccupancyLog{}
	}
	return HistoryPage{Entries: entries, Total: total, Page: page, PageSize: size}, nil
}

// OccupancyHistory returns every audit entry that names the occupancy, newest first.
func (s *Service) OccupancyHistory(ctx context.Context, occupancyID int64) ([]model.OccupancyLog, error) {
	if _, err := s.store.GetOccupancy(ctx, occupancyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError("occupancy", occupancyID)
		}
		return nil, s.classify("HISTORY", err)
	}
	entries, err := s.store.OccupancyLogs(ctx, occupancyID)
	if err != nil {
		return nil, s.classify("HISTORY", err)
	}
	if entries == nil {
		entries = []model.OccupancyLog{}
	}
	return entries, nil
}
