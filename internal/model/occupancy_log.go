package model

import (
	"time"

	"gorm.io/datatypes"
)

// Action names a mutating occupancy operation recorded in the log.
type Action string

const (
	ActionAssign   Action = "ASSIGN"
	ActionApprove  Action = "APPROVE"
	ActionCheckIn  Action = "CHECK_IN"
	ActionCheckOut Action = "CHECK_OUT"
	ActionCancel   Action = "CANCEL"
	ActionNoShow   Action = "NO_SHOW"
	ActionTransfer Action = "TRANSFER"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionAssign, ActionApprove, ActionCheckIn, ActionCheckOut, ActionCancel, ActionNoShow, ActionTransfer:
		return true
	}
	return false
}

// Log flags.
const (
	FlagH1             = "H-1"
	FlagForcedCheckout = "FORCED_CHECKOUT"
)

// OccupancyLog is an immutable audit entry. Rows are only ever inserted.
type OccupancyLog struct {
	ID                 int64            `gorm:"primaryKey" json:"id"`
	OccupancyID        int64            `gorm:"index;not null" json:"occupancyId"`
	RelatedOccupancyID *int64           `gorm:"index" json:"relatedOccupancyId,omitempty"`
	Action             Action           `gorm:"size:16;index;not null" json:"action"`
	FromStatus         *OccupancyStatus `gorm:"size:16" json:"fromStatus,omitempty"`
	ToStatus           OccupancyStatus  `gorm:"size:16;not null" json:"toStatus"`

	BedID      int64  `gorm:"not null" json:"bedId"`
	RoomID     int64  `gorm:"index:idx_occupancy_log_room_created;not null" json:"roomId"`
	FromBedID  *int64 `json:"fromBedId,omitempty"`
	FromRoomID *int64 `gorm:"index" json:"fromRoomId,omitempty"`

	ActorID   string         `gorm:"size:64;not null" json:"actorId"`
	ActorName string         `gorm:"size:128" json:"actorName"`
	Reason    string         `gorm:"size:512" json:"reason,omitempty"`
	Flags     string         `gorm:"size:64" json:"flags,omitempty"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"index:idx_occupancy_log_room_created;not null" json:"createdAt"`
}
