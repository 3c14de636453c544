package model

type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "sucesso"
	NotificationAlert   NotificationKind = "alerta"
	NotificationError   NotificationKind = "erro"
)

// Notification is an inbox entry for the student.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      NotificationKind `json:"tipo"`
	Title     string           `json:"titulo"`
	Message   string           `json:"mensagem"`
	Read      bool             `json:"lida"`
	ReadAt    *string          `json:"lida_em"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

type NotificationCounter struct {
	Total  int `json:"total"`
	Unread int `json:"nao_lidas"`
}
