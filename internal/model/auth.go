package model

// Role is the profile of an authenticated user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "estudante"
)

// User is the authenticated account as returned by /auth/me.
type User struct {
	ID         int64    `json:"id" yaml:"id"`
	Name       string   `json:"nome" yaml:"nome"`
	Email      string   `json:"email" yaml:"email"`
	Matricula  string   `json:"matricula" yaml:"matricula"`
	Role       Role     `json:"perfil" yaml:"perfil"`
	Bolsista   bool     `json:"bolsista,omitempty" yaml:"bolsista,omitempty"`
	Course     *string  `json:"curso,omitempty" yaml:"curso,omitempty"`
	MealShift  *string  `json:"turno_refeicao,omitempty" yaml:"turno_refeicao,omitempty"`
	ClassShift *string  `json:"turno_aula,omitempty" yaml:"turno_aula,omitempty"`
	Photo      *string  `json:"foto,omitempty" yaml:"foto,omitempty"`
	WeekDays   []string `json:"dias_semana,omitempty" yaml:"dias_semana,omitempty"`
}

type LoginRequest struct {
	Matricula string `json:"matricula"`
	Password  string `json:"password"`
}

type RegisterRequest struct {
	Name                 string  `json:"nome"`
	Email                string  `json:"email"`
	Matricula            string  `json:"matricula"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	Course               *string `json:"curso,omitempty"`
	Shift                *string `json:"turno,omitempty"`
	ClassShift           *string `json:"turno_aula,omitempty"`
	Role                 Role    `json:"perfil,omitempty"`
}

// AuthPayload is returned by login and register.
type AuthPayload struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
