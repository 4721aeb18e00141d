package model

import "time"

// GenderPolicy restricts which occupants a room accepts.
type GenderPolicy string

const (
	GenderPolicyMixed  GenderPolicy = "MIXED"
	GenderPolicyMale   GenderPolicy = "MALE"
	GenderPolicyFemale GenderPolicy = "FEMALE"
)

// Admits reports whether an occupant of the given gender may be placed under this policy.
func (p GenderPolicy) Admits(g Gender) bool {
	switch p {
	case GenderPolicyMale:
		return g == GenderMale
	case GenderPolicyFemale:
		return g == GenderFemale
	default:
		return true
	}
}

// Building represents a dormitory building.
type Building struct {
	ID           int64         `gorm:"primaryKey" json:"id"`
	Code         string        `gorm:"uniqueIndex;size:32;not null" json:"code"`
	Name         string        `gorm:"size:128;not null" json:"name"`
	GenderPolicy *GenderPolicy `gorm:"size:16" json:"genderPolicy,omitempty"`
	CreatedAt    time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updatedAt"`

	// Associations
	Floors []Floor `gorm:"foreignKey:BuildingID" json:"-"`
}

// Floor is a single level of a building.
type Floor struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	BuildingID int64     `gorm:"index;not null" json:"buildingId"`
	Number     int       `gorm:"not null" json:"number"`
	Name       string    `gorm:"size:64" json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Associations
	Building Building `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Rooms    []Room   `gorm:"foreignKey:FloorID" json:"-"`
}

// Room groups beds and carries the gender and capacity policy they inherit.
type Room struct {
	ID           int64         `gorm:"primaryKey" json:"id"`
	FloorID      int64         `gorm:"index;not null" json:"floorId"`
	Code         string        `gorm:"size:32;not null" json:"code"`
	Name         string        `gorm:"size:128" json:"name"`
	GenderPolicy *GenderPolicy `gorm:"size:16" json:"genderPolicy,omitempty"`
	// Capacity caps concurrent active occupancies in the room; 0 means one per bed.
	Capacity  int       `gorm:"not null;default:0" json:"capacity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Associations
	Floor Floor `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Beds  []Bed `gorm:"foreignKey:RoomID" json:"-"`
}

// EffectiveGenderPolicy resolves the room policy, falling back to the building's.
func (r Room) EffectiveGenderPolicy() GenderPolicy {
	if r.GenderPolicy != nil && *r.GenderPolicy != "" {
		return *r.GenderPolicy
	}
	if r.Floor.Building.GenderPolicy != nil && *r.Floor.Building.GenderPolicy != "" {
		return *r.Floor.Building.GenderPolicy
	}
	return GenderPolicyMixed
}
