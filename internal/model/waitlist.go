package model

import "encoding/json"

// Shift is the meal period of a slot.
type Shift string

const (
	ShiftLunch  Shift = "almoco"
	ShiftDinner Shift = "jantar"
)

// QueueStatus is the coarse, server-computed standing of a pending inscription.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "aguardando"
	QueueNext      QueueStatus = "proximo"
	QueueConfirmed QueueStatus = "confirmado"
)

// MealRef is the slot summary embedded in an inscription.
type MealRef struct {
	ID    int64  `json:"id"`
	Shift Shift  `json:"turno"`
	Date  string `json:"data"`
	Menu  *struct {
		MainDish string `json:"prato_principal"`
	} `json:"cardapio,omitempty"`
}

// Inscription is one student's claim on one meal slot.
type Inscription struct {
	ID          int64    `json:"id"`
	UserID      int64    `json:"user_id"`
	SlotID      int64    `json:"refeicao_id"`
	InscribedAt string   `json:"data_inscricao"`
	Position    *int     `json:"posicao"`
	Confirmed   bool     `json:"confirmado"`
	Canceled    bool     `json:"cancelado"`
	Slot        *MealRef `json:"refeicao,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Active reports whether the inscription still holds its claim.
func (i Inscription) Active() bool {
	return !i.Canceled
}

// MealSlot is a (date, shift) meal open for extra-meal inscription.
type MealSlot struct {
	ID               int64  `json:"id"`
	MenuID           int64  `json:"cardapio_id"`
	Shift            Shift  `json:"turno"`
	Date             string `json:"data"`
	MainDish         string `json:"prato_principal"`
	SideDish         string `json:"acompanhamento"`
	Garnish          string `json:"guarnicao"`
	Salad            string `json:"salada"`
	Dessert          string `json:"sobremesa"`
	Remaining        int    `json:"vagas_disponiveis"`
	TotalInscribed   int    `json:"total_inscritos"`
	Cutoff           string `json:"limite_inscricoes"`
	CanInscribe      bool   `json:"pode_inscrever"`
	AlreadyInscribed bool   `json:"ja_inscrito"`
}

// UnmarshalJSON accepts both "ja_inscrito" and the older "inscrito" flag.
func (s *MealSlot) UnmarshalJSON(b []byte) error {
	type plain MealSlot
	aux := struct {
		*plain
		Inscrito *bool `json:"inscrito"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Inscrito != nil && *aux.Inscrito {
		s.AlreadyInscribed = true
	}
	return nil
}

// InscriptionRequest is the body of an inscribe call.
type InscriptionRequest struct {
	SlotID int64 `json:"refeicao_id"`
}

// QueuePosition is the caller's rank for one slot.
type QueuePosition struct {
	SlotID   int64       `json:"refeicao_id"`
	Position int         `json:"posicao"`
	Total    int         `json:"total_na_fila"`
	Estimate string      `json:"sua_vez_aproximada"`
	Status   QueueStatus `json:"status"`
}
