package model

import "time"

// PositionOpen is the current queue standing for a slot (hot table).
type PositionOpen struct {
	SlotID     int64       `gorm:"primaryKey"`
	ObservedAt time.Time   `gorm:"not null"`
	Position   int         `gorm:"not null"`
	Total      int         `gorm:"not null"`
	Status     QueueStatus `gorm:"size:16;not null"`
	Estimate   string      `gorm:"size:64;not null"`
}

// PositionHistory is a closed period during which a standing held (cold table).
type PositionHistory struct {
	ID          int64       `gorm:"primaryKey;autoIncrement"`
	SlotID      int64       `gorm:"not null;index"`
	ObservedAt  time.Time   `gorm:"not null;index"` // Time the standing's END was observed
	Position    int         `gorm:"not null"`
	Total       int         `gorm:"not null"`
	Status      QueueStatus `gorm:"size:16;not null"`
	PeriodStart time.Time   `gorm:"not null"`
	PeriodEnd   time.Time   `gorm:"not null"`
}

// PositionEvent is a change of standing worth telling the student about.
type PositionEvent struct {
	SlotID         int64       `json:"refeicao_id"`
	Date           string      `json:"data,omitempty"`
	Shift          Shift       `json:"turno,omitempty"`
	Position       int         `json:"posicao"`
	Total          int         `json:"total_na_fila"`
	Status         QueueStatus `json:"status"`
	PreviousStatus QueueStatus `json:"status_anterior,omitempty"`
	ObservedAt     time.Time   `json:"observado_em"`
}
