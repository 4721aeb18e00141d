package model

import "time"

// BedStatus is the maintenance flag of a bed.
type BedStatus string

const (
	BedStatusActive      BedStatus = "ACTIVE"
	BedStatusMaintenance BedStatus = "MAINTENANCE"
	BedStatusInactive    BedStatus = "INACTIVE"
)

// Bed is a single bookable bed inside a room.
type Bed struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	RoomID int64 `gorm:"index;not null" json:"roomId"`
	// Code is the printed label, e.g. A-3-12-B.
	Code      string    `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Status    BedStatus `gorm:"size:16;not null;default:ACTIVE" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Associations
	Room Room `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// Bookable reports whether new occupancies may be placed on the bed.
func (b Bed) Bookable() bool {
	return b.Status == "" || b.Status == BedStatusActive
}
