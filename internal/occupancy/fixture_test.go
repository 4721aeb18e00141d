package occupancy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dorm-occupancy-backend/internal/model"
	"dorm-occupancy-backend/internal/store"
)

var (
	admin     = Actor{ID: "u-admin", Name: "Admin", Role: RoleAdmin}
	operator  = Actor{ID: "u-op", Name: "Operator", Role: RoleOperator}
	requester = Actor{ID: "u-req", Name: "Requester", Role: RoleRequester}
	system    = Actor{ID: "system", Name: "no-show sweeper", Role: RoleSystem}
)

// Reference data used by every engine test:
//
//	room 1 (R101, MALE, capacity 0)   beds 11, 12, 13 (13 under maintenance)
//	room 2 (R102, FEMALE)             bed 21
//	room 3 (R103, inherits MIXED)     beds 31, 32
//	room 4 (R104, MIXED, capacity 1)  beds 41, 42
//	occupants 1 Budi (M), 2 Andi (M), 3 Siti (F), 4 Citra (F)
const (
	roomMale   int64 = 1
	roomFemale int64 = 2
	roomMixed  int64 = 3
	roomSmall  int64 = 4

	bedA     int64 = 11
	bedB     int64 = 12
	bedBroke int64 = 13
	bedF     int64 = 21
	bedM1    int64 = 31
	bedM2    int64 = 32
	bedS1    int64 = 41
	bedS2    int64 = 42

	budi  int64 = 1
	andi  int64 = 2
	siti  int64 = 3
	citra int64 = 4
)

type fixture struct {
	t     *testing.T
	store *store.MemoryStore
	svc   *Service
	clock *testClock
	sink  *recordingNotifier
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetDay moves the clock to 09:00 UTC on the given date.
func (c *testClock) SetDay(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = mustDate(day).Add(9 * time.Hour)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) Notify(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingNotifier) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	male, female, mixed := model.GenderPolicyMale, model.GenderPolicyFemale, model.GenderPolicyMixed

	st := store.NewMemoryStore()
	clock := &testClock{}
	clock.SetDay("2024-03-01")
	st.SetClock(clock.Now)

	st.PutRoom(model.Room{ID: roomMale, Code: "R101", GenderPolicy: &male})
	st.PutRoom(model.Room{ID: roomFemale, Code: "R102", GenderPolicy: &female})
	st.PutRoom(model.Room{ID: roomMixed, Code: "R103"})
	st.PutRoom(model.Room{ID: roomSmall, Code: "R104", GenderPolicy: &mixed, Capacity: 1})

	st.PutBed(model.Bed{ID: bedA, RoomID: roomMale, Code: "R101-A", Position: 1, Status: model.BedStatusActive})
	st.PutBed(model.Bed{ID: bedB, RoomID: roomMale, Code: "R101-B", Position: 2, Status: model.BedStatusActive})
	st.PutBed(model.Bed{ID: bedBroke, RoomID: roomMale, Code: "R101-C", Position: 3, Status: model.BedStatusMaintenance})
	st.PutBed(model.Bed{ID: bedF, RoomID: roomFemale, Code: "R102-A", Position: 1, Status: model.BedStatusActive})
	st.PutBed(model.Bed{ID: bedM1, RoomID: roomMixed, Code: "R103-A", Position: 1, Status: model.BedStatusActive})
	st.PutBed(model.Bed{ID: bedM2, RoomID: roomMixed, Code: "R103-B", Position: 2, Status: model.BedStatusActive})
	st.PutBed(model.Bed{ID: bedS1, RoomID: roomSmall, Code: "R104-A", Position: 1, Status: model.BedStatusActive})
	st.PutBed(model.Bed{ID: bedS2, RoomID: roomSmall, Code: "R104-B", Position: 2, Status: model.BedStatusActive})

	st.PutOccupant(model.Occupant{ID: budi, NIK: "1001", Name: "Budi", Gender: model.GenderMale, Type: model.OccupantEmployee})
	st.PutOccupant(model.Occupant{ID: andi, NIK: "1002", Name: "Andi", Gender: model.GenderMale, Type: model.OccupantEmployee})
	st.PutOccupant(model.Occupant{ID: siti, NIK: "1003", Name: "Siti", Gender: model.GenderFemale, Type: model.OccupantGuest})
	st.PutOccupant(model.Occupant{ID: citra, NIK: "1004", Name: "Citra", Gender: model.GenderFemale, Type: model.OccupantEmployee})

	sink := &recordingNotifier{}
	svc := NewService(st, WithClock(clock.Now), WithNotifier(sink), WithConflictRetries(2))
	return &fixture{t: t, store: st, svc: svc, clock: clock, sink: sink}
}

func mustDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := mustDate(s)
	return &d
}

// assign places an occupant as RESERVED and fails the test on error.
func (f *fixture) assign(occupant, bed int64, from string, to string) model.Occupancy {
	f.t.Helper()
	in := AssignInput{OccupantID: occupant, BedID: bed, CheckInDate: mustDate(from)}
	if to != "" {
		in.CheckOutDate = datePtr(to)
	}
	o, err := f.svc.Assign(context.Background(), in, operator)
	require.NoError(f.t, err)
	return o
}

func (f *fixture) checkIn(id int64) model.Occupancy {
	f.t.Helper()
	o, err := f.svc.CheckIn(context.Background(), id, operator)
	require.NoError(f.t, err)
	return o
}

func (f *fixture) logsFor(id int64) []model.OccupancyLog {
	var out []model.OccupancyLog
	for _, e := range f.store.Logs() {
		if e.OccupancyID == id {
			out = append(out, e)
		}
	}
	return out
}
