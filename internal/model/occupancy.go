package model

import (
	"time"
)

// OccupancyStatus is the lifecycle state of an occupancy.
type OccupancyStatus string

const (
	StatusPending    OccupancyStatus = "PENDING"
	StatusReserved   OccupancyStatus = "RESERVED"
	StatusCheckedIn  OccupancyStatus = "CHECKED_IN"
	StatusCheckedOut OccupancyStatus = "CHECKED_OUT"
	StatusCancelled  OccupancyStatus = "CANCELLED"
	StatusNoShow     OccupancyStatus = "NO_SHOW"
)

// ActiveStatuses are the statuses that hold a bed.
var ActiveStatuses = []OccupancyStatus{StatusReserved, StatusCheckedIn}

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []OccupancyStatus{
	StatusPending, StatusReserved, StatusCheckedIn,
	StatusCheckedOut, StatusCancelled, StatusNoShow,
}

// Valid reports whether s is a known status.
func (s OccupancyStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReserved, StatusCheckedIn, StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Active reports whether s holds the bed for its interval.
func (s OccupancyStatus) Active() bool {
	return s == StatusReserved || s == StatusCheckedIn
}

// Terminal reports whether no further transitions are possible from s.
func (s OccupancyStatus) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled || s == StatusNoShow
}

// Occupancy is one stay of one occupant on one bed for a date interval.
// The interval is [CheckInDate, CheckOutDate); a nil CheckOutDate is an indefinite stay.
type Occupancy struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	Code       string `gorm:"uniqueIndex;size:36;not null" json:"code"`
	OccupantID int64  `gorm:"index;not null" json:"occupantId"`
	BedID      int64  `gorm:"index:idx_occupancy_bed_dates;not null" json:"bedId"`
	RoomID     int64  `gorm:"index;not null" json:"roomId"`

	CheckInDate      time.Time  `gorm:"type:date;index:idx_occupancy_bed_dates;not null" json:"checkInDate"`
	CheckOutDate     *time.Time `gorm:"type:date;index:idx_occupancy_bed_dates" json:"checkOutDate"`
	ActualCheckInAt  *time.Time `json:"actualCheckInAt,omitempty"`
	ActualCheckOutAt *time.Time `json:"actualCheckOutAt,omitempty"`

	Status OccupancyStatus `gorm:"size:16;index;not null" json:"status"`
	Notes  string          `gorm:"size:512" json:"notes,omitempty"`

	CreatedBy       string     `gorm:"size:64;not null" json:"createdBy"`
	CreatedByName   string     `gorm:"size:128" json:"createdByName"`
	CancelledBy     *string    `gorm:"size:64" json:"cancelledBy,omitempty"`
	CancelledByName *string    `gorm:"size:128" json:"cancelledByName,omitempty"`
	CancelledReason *string    `gorm:"size:512" json:"cancelledReason,omitempty"`
	CancelledAt     *time.Time `json:"cancelledAt,omitempty"`

	TransferredFromID *int64 `gorm:"index" json:"transferredFromId,omitempty"`
	TransferredToID   *int64 `gorm:"index" json:"transferredToId,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Occupant Occupant `gorm:"constraint:OnDelete:RESTRICT" json:"occupant,omitempty"`
	Bed      Bed      `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// Indefinite reports whether the stay has no planned checkout date.
func (o Occupancy) Indefinite() bool {
	return o.CheckOutDate == nil
}
