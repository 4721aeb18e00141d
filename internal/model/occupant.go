package model

import "time"

// Gender of an occupant.
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// OccupantType distinguishes staff from visitors.
type OccupantType string

const (
	OccupantEmployee OccupantType = "EMPLOYEE"
	OccupantGuest    OccupantType = "GUEST"
)

// Occupant is a person who can hold occupancies over time.
type Occupant struct {
	ID         int64        `gorm:"primaryKey" json:"id"`
	NIK        string       `gorm:"column:nik;uniqueIndex;size:32;not null" json:"nik"`
	Name       string       `gorm:"size:128;not null" json:"name"`
	Gender     Gender       `gorm:"size:16;not null" json:"gender"`
	Type       OccupantType `gorm:"size:16;not null;default:EMPLOYEE" json:"type"`
	Company    string       `gorm:"size:128" json:"company,omitempty"`
	Department string       `gorm:"size:128" json:"department,omitempty"`
	Phone      string       `gorm:"size:32" json:"phone,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}
