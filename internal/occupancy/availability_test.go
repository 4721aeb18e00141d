package occupancy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-occupancy-backend/internal/model"
)

func TestIsBedFree(t *testing.T) {
	f := newFixture(t)
	f.assign(budi, bedA, "2024-03-10", "2024-03-15")
	indefinite := f.assign(andi, bedB, "2024-03-10", "")
	f.checkIn(indefinite.ID)

	testCases := []struct {
		name     string
		bedID    int64
		start    string
		end      string
		want     bool
		wantKind Kind
	}{
		{name: "Before the stay", bedID: bedA, start: "2024-03-01", end: "2024-03-10", want: true},
		{name: "After the stay", bedID: bedA, start: "2024-03-15", end: "2024-03-20", want: true},
		{name: "Inside the stay", bedID: bedA, start: "2024-03-11", end: "2024-03-12", want: false},
		{name: "Open-ended request over the stay", bedID: bedA, start: "2024-03-01", want: false},
		{name: "Open-ended request after the stay", bedID: bedA, start: "2024-03-15", want: true},
		{name: "Far future on an indefinite stay", bedID: bedB, start: "2030-01-01", end: "2030-01-02", want: false},
		{name: "Before an indefinite stay", bedID: bedB, start: "2024-03-01", end: "2024-03-10", want: true},
		{name: "Unknown bed", bedID: 999, start: "2024-03-01", wantKind: KindNotFound},
		{name: "Inverted range", bedID: bedA, start: "2024-03-10", end: "2024-03-01", wantKind: KindValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var end *time.Time
			if tc.end != "" {
				end = datePtr(tc.end)
			}
			free, err := f.svc.IsBedFree(context.Background(), tc.bedID, mustDate(tc.start), end)
			if tc.wantKind != "" {
				assert.Equal(t, tc.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, free)
		})
	}
}

func TestBedsWithOccupancy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	current := f.assign(budi, bedA, "2024-02-25", "2024-03-05")
	f.checkIn(current.ID)
	next := f.assign(andi, bedA, "2024-03-05", "2024-03-08")
	request, err := f.svc.Assign(ctx, AssignInput{OccupantID: andi, BedID: bedB, CheckInDate: mustDate("2024-03-20"), Status: model.StatusPending}, requester)
	require.NoError(t, err)
	f.assign(budi, bedB, "2024-01-01", "2024-02-01")

	beds, err := f.svc.BedsWithOccupancy(ctx, roomMale, mustDate("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, beds, 3)

	assert.Equal(t, bedA, beds[0].Bed.ID)
	require.NotNil(t, beds[0].Current)
	assert.Equal(t, current.ID, beds[0].Current.ID)
	require.Len(t, beds[0].Upcoming, 1)
	assert.Equal(t, next.ID, beds[0].Upcoming[0].ID)
	assert.False(t, beds[0].Available)

	assert.Equal(t, bedB, beds[1].Bed.ID)
	assert.Nil(t, beds[1].Current)
	require.Len(t, beds[1].Upcoming, 1)
	assert.Equal(t, request.ID, beds[1].Upcoming[0].ID)
	assert.True(t, beds[1].Available)

	assert.Equal(t, bedBroke, beds[2].Bed.ID)
	assert.False(t, beds[2].Available, "beds under maintenance are never available")

	_, err = f.svc.BedsWithOccupancy(ctx, 999, time.Time{})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAssign_BuildingGenderPolicy(t *testing.T) {
	female, mixed := model.GenderPolicyFemale, model.GenderPolicyMixed
	const (
		roomInherits int64 = 5
		roomOverride int64 = 6
		bedInherits  int64 = 51
		bedOverride  int64 = 61
	)

	testCases := []struct {
		name     string
		occupant int64
		bed      int64
		wantKind Kind
	}{
		{name: "Male occupant in a room of a female building", occupant: budi, bed: bedInherits, wantKind: KindGenderPolicyViolation},
		{name: "Female occupant in a room of a female building", occupant: siti, bed: bedInherits},
		{name: "Room policy overrides the building", occupant: budi, bed: bedOverride},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.PutBuilding(model.Building{ID: 2, Code: "M", Name: "Melati", GenderPolicy: &female})
			f.store.PutFloor(model.Floor{ID: 20, BuildingID: 2, Number: 1})
			f.store.PutRoom(model.Room{ID: roomInherits, FloorID: 20, Code: "M101"})
			f.store.PutRoom(model.Room{ID: roomOverride, FloorID: 20, Code: "M102", GenderPolicy: &mixed})
			f.store.PutBed(model.Bed{ID: bedInherits, RoomID: roomInherits, Code: "M-1-101-A", Position: 1, Status: model.BedStatusActive})
			f.store.PutBed(model.Bed{ID: bedOverride, RoomID: roomOverride, Code: "M-1-102-A", Position: 1, Status: model.BedStatusActive})

			_, err := f.svc.Assign(context.Background(), AssignInput{
				OccupantID: tc.occupant, BedID: tc.bed, CheckInDate: mustDate("2024-03-05"),
			}, operator)
			if tc.wantKind == "" {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tc.wantKind, KindOf(err))
		})
	}
}
