package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"dorm-occupancy-backend/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used by tests and local tooling.
// Transactions are serialized by a single mutex and rolled back by restoring a snapshot.
type MemoryStore struct {
	mu sync.Mutex

	buildings   map[int64]model.Building
	floors      map[int64]model.Floor
	rooms       map[int64]model.Room
	beds        map[int64]model.Bed
	occupants   map[int64]model.Occupant
	occupancies map[int64]model.Occupancy
	logs        []model.OccupancyLog

	nextOccupancyID int64
	nextLogID       int64
	now             func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buildings:   make(map[int64]model.Building),
		floors:      make(map[int64]model.Floor),
		rooms:       make(map[int64]model.Room),
		beds:        make(map[int64]model.Bed),
		occupants:   make(map[int64]model.Occupant),
		occupancies: make(map[int64]model.Occupancy),
		now:         time.Now,
	}
}

// SetClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// PutBuilding adds or replaces reference data.
func (m *MemoryStore) PutBuilding(b model.Building) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buildings[b.ID] = b
}

// PutFloor adds or replaces reference data.
func (m *MemoryStore) PutFloor(f model.Floor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.floors[f.ID] = f
}

// PutRoom adds or replaces reference data.
func (m *MemoryStore) PutRoom(r model.Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID] = r
}

// PutBed adds or replaces reference data.
func (m *MemoryStore) PutBed(b model.Bed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beds[b.ID] = b
}

// PutOccupant adds or replaces reference data.
func (m *MemoryStore) PutOccupant(o model.Occupant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupants[o.ID] = o
}

// Logs returns a copy of every audit entry in insertion order.
func (m *MemoryStore) Logs() []model.OccupancyLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OccupancyLog(nil), m.logs...)
}

// Occupancies returns a copy of every stored occupancy ordered by id.
func (m *MemoryStore) Occupancies() []model.Occupancy {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Occupancy, 0, len(m.occupancies))
	for _, o := range m.occupancies {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&memoryTx{m: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	occupancies     map[int64]model.Occupancy
	logs            int
	nextOccupancyID int64
	nextLogID       int64
}

func (m *MemoryStore) snapshot() memorySnapshot {
	occ := make(map[int64]model.Occupancy, len(m.occupancies))
	for k, v := range m.occupancies {
		occ[k] = v
	}
	return memorySnapshot{occupancies: occ, logs: len(m.logs), nextOccupancyID: m.nextOccupancyID, nextLogID: m.nextLogID}
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.occupancies = s.occupancies
	m.logs = m.logs[:s.logs]
	m.nextOccupancyID = s.nextOccupancyID
	m.nextLogID = s.nextLogID
}

func (m *MemoryStore) bedWithRoom(id int64) (model.Bed, error) {
	bed, ok := m.beds[id]
	if !ok {
		return model.Bed{}, ErrNotFound
	}
	room, ok := m.roomWithFloor(bed.RoomID)
	if !ok {
		return model.Bed{}, ErrNotFound
	}
	bed.Room = room
	return bed, nil
}

// roomWithFloor mirrors the gorm store's Floor.Building preload. Rooms without a known
// floor are returned as stored.
func (m *MemoryStore) roomWithFloor(id int64) (model.Room, bool) {
	room, ok := m.rooms[id]
	if !ok {
		return model.Room{}, false
	}
	if floor, ok := m.floors[room.FloorID]; ok {
		floor.Building = m.buildings[floor.BuildingID]
		room.Floor = floor
	}
	return room, true
}

func (m *MemoryStore) occupancyWithOccupant(id int64) (model.Occupancy, error) {
	o, ok := m.occupancies[id]
	if !ok {
		return model.Occupancy{}, ErrNotFound
	}
	o.Occupant = m.occupants[o.OccupantID]
	return o, nil
}

func (m *MemoryStore) overlapping(q OverlapQuery) []model.Occupancy {
	var out []model.Occupancy
	for _, o := range m.occupancies {
		if q.matches(o) {
			o.Occupant = m.occupants[o.OccupantID]
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInDate.Equal(out[j].CheckInDate) {
			return out[i].CheckInDate.Before(out[j].CheckInDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *MemoryStore) GetBed(_ context.Context, id int64) (model.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bedWithRoom(id)
}

func (m *MemoryStore) GetBedByCode(_ context.Context, code string) (model.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, b := range m.beds {
		if b.Code == code {
			return m.bedWithRoom(id)
		}
	}
	return model.Bed{}, ErrNotFound
}

func (m *MemoryStore) GetRoom(_ context.Context, id int64) (model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.roomWithFloor(id)
	if !ok {
		return model.Room{}, ErrNotFound
	}
	return room, nil
}

func (m *MemoryStore) ListBeds(_ context.Context, roomID int64) ([]model.Bed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var beds []model.Bed
	for _, b := range m.beds {
		if b.RoomID == roomID {
			beds = append(beds, b)
		}
	}
	sort.Slice(beds, func(i, j int) bool {
		if beds[i].Position != beds[j].Position {
			return beds[i].Position < beds[j].Position
		}
		return beds[i].ID < beds[j].ID
	})
	return beds, nil
}

func (m *MemoryStore) GetOccupant(_ context.Context, id int64) (model.Occupant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.occupants[id]
	if !ok {
		return model.Occupant{}, ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) GetOccupantByNIK(_ context.Context, nik string) (model.Occupant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.occupants {
		if o.NIK == nik {
			return o, nil
		}
	}
	return model.Occupant{}, ErrNotFound
}

func (m *MemoryStore) GetOccupancy(_ context.Context, id int64) (model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupancyWithOccupant(id)
}

func (m *MemoryStore) GetOccupancyByCode(_ context.Context, code string) (model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.occupancies {
		if o.Code == code {
			return m.occupancyWithOccupant(id)
		}
	}
	return model.Occupancy{}, ErrNotFound
}

func (m *MemoryStore) FindOverlapping(_ context.Context, q OverlapQuery) ([]model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlapping(q), nil
}

func (m *MemoryStore) ListOpenOccupancies(_ context.Context, bedIDs []int64, on time.Time) ([]model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Occupancy
	for _, bedID := range bedIDs {
		id := bedID
		out = append(out, m.overlapping(OverlapQuery{
			BedID:    &id,
			Start:    on,
			Statuses: []model.OccupancyStatus{model.StatusPending, model.StatusReserved, model.StatusCheckedIn},
		})...)
	}
	return out, nil
}

func (m *MemoryStore) ListOverdueReservations(_ context.Context, cutoff time.Time) ([]model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Occupancy
	for _, o := range m.occupancies {
		if o.Status == model.StatusReserved && o.CheckInDate.Before(cutoff) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) RoomHistory(_ context.Context, roomID int64, q HistoryQuery) ([]model.OccupancyLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.OccupancyLog
	for _, e := range m.logs {
		if e.RoomID != roomID && (e.FromRoomID == nil || *e.FromRoomID != roomID) {
			continue
		}
		if len(q.Actions) > 0 && !containsAction(q.Actions, e.Action) {
			continue
		}
		if q.From != nil && e.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && !e.CreatedAt.Before(*q.To) {
			continue
		}
		matched = append(matched, e)
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	if q.Limit > 0 {
		if q.Offset >= len(matched) {
			return []model.OccupancyLog{}, total, nil
		}
		end := q.Offset + q.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[q.Offset:end]
	}
	return matched, total, nil
}

func (m *MemoryStore) OccupancyLogs(_ context.Context, occupancyID int64) ([]model.OccupancyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OccupancyLog
	for _, e := range m.logs {
		if e.OccupancyID == occupancyID || (e.RelatedOccupancyID != nil && *e.RelatedOccupancyID == occupancyID) {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func containsAction(actions []model.Action, a model.Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

func sortNewestFirst(entries []model.OccupancyLog) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}

// memoryTx runs with the store mutex already held.
type memoryTx struct {
	m *MemoryStore
}

func (t *memoryTx) LockBed(id int64) (model.Bed, error) {
	return t.m.bedWithRoom(id)
}

func (t *memoryTx) LockOccupancy(id int64) (model.Occupancy, error) {
	return t.m.occupancyWithOccupant(id)
}

func (t *memoryTx) FindOccupant(id int64) (model.Occupant, error) {
	o, ok := t.m.occupants[id]
	if !ok {
		return model.Occupant{}, ErrNotFound
	}
	return o, nil
}

func (t *memoryTx) FindOverlapping(q OverlapQuery) ([]model.Occupancy, error) {
	return t.m.overlapping(q), nil
}

func (t *memoryTx) CountOverlapping(q OverlapQuery) (int64, error) {
	return int64(len(t.m.overlapping(q))), nil
}

func (t *memoryTx) Insert(o *model.Occupancy) error {
	t.m.nextOccupancyID++
	o.ID = t.m.nextOccupancyID
	now := t.m.now()
	o.CreatedAt, o.UpdatedAt = now, now
	stored := *o
	stored.Occupant = model.Occupant{}
	stored.Bed = model.Bed{}
	t.m.occupancies[o.ID] = stored
	return nil
}

func (t *memoryTx) Update(o *model.Occupancy) error {
	if _, ok := t.m.occupancies[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = t.m.now()
	stored := *o
	stored.Occupant = model.Occupant{}
	stored.Bed = model.Bed{}
	t.m.occupancies[o.ID] = stored
	return nil
}

func (t *memoryTx) AppendLog(entry *model.OccupancyLog) error {
	t.m.nextLogID++
	entry.ID = t.m.nextLogID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.m.now()
	}
	t.m.logs = append(t.m.logs, *entry)
	return nil
}
