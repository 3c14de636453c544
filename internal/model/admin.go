package model

// AdminInscription is the staff view of a waitlist entry.
type AdminInscription struct {
	ID   int64 `json:"id"`
	User struct {
		ID        int64  `json:"id"`
		Name      string `json:"nome"`
		Matricula string `json:"matricula"`
		Email     string `json:"email,omitempty"`
	} `json:"user"`
	Slot        *MealRef `json:"refeicao,omitempty"`
	Shift       string   `json:"turno,omitempty"`
	Status      string   `json:"status"`
	InscribedAt string   `json:"inscrito_em"`
	Position    *int     `json:"posicao"`
}

// ExtrasFilter narrows the admin listing. Zero values are omitted.
type ExtrasFilter struct {
	Date    string
	Shift   Shift
	Status  string
	PerPage int
	Page    int
}

// Pagination is the meta block of paginated admin listings.
type Pagination struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

type ExtrasStats struct {
	Summary struct {
		TotalInscribed int    `json:"total_inscritos"`
		Approved       int    `json:"aprovados"`
		Rejected       int    `json:"rejeitados"`
		Waiting        int    `json:"aguardando"`
		ApprovalRate   string `json:"taxa_aprovacao"`
	} `json:"resumo"`
	TopStudents []struct {
		Name              string `json:"nome"`
		Matricula         string `json:"matricula"`
		TotalInscriptions int    `json:"total_inscricoes"`
	} `json:"top_estudantes"`
	Period struct {
		Start string `json:"inicio"`
		End   string `json:"fim"`
	} `json:"periodo"`
}

type BatchApproval struct {
	Approved int      `json:"aprovados"`
	Errors   []string `json:"erros"`
}
