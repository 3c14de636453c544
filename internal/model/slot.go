package model

import "time"

// Slot mirrors the last observed state of an available meal slot.
type Slot struct {
	ID               int64      `gorm:"primaryKey"` // Upstream refeicao id
	MenuID           int64      `gorm:"index"`
	Date             string     `gorm:"size:10;index;not null"`
	Shift            Shift      `gorm:"size:16;not null"`
	MainDish         string     `gorm:"size:256"`
	Remaining        int        `gorm:"not null"`
	TotalInscribed   int        `gorm:"not null"`
	Cutoff           string     `gorm:"size:5"`
	CutoffAt         *time.Time
	CanInscribe      bool
	AlreadyInscribed bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
