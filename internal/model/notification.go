package model

import "time"

// Notification is an in-app notice produced after an occupancy state change.
type Notification struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	OccupancyID int64     `gorm:"index;not null" json:"occupancyId"`
	OccupantID  int64     `gorm:"index;not null" json:"occupantId"`
	Action      Action    `gorm:"size:16;not null" json:"action"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	Message     string    `gorm:"size:512;not null" json:"message"`
	Read        bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
