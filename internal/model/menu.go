package model

// Menu is one shift's menu for one day.
type Menu struct {
	ID          int64   `json:"id"`
	Date        string  `json:"data_do_cardapio"`
	Shift       Shift   `json:"turno"`
	MainDish    string  `json:"prato_principal_ptn01"`
	MainDishAlt *string `json:"prato_principal_ptn02,omitempty"`
	Garnish     string  `json:"guarnicao"`
	SideDish    string  `json:"acompanhamento_01"`
	SideDishAlt *string `json:"acompanhamento_02,omitempty"`
	Salad       string  `json:"salada"`
	Vegetarian  *string `json:"ovo_lacto_vegetariano,omitempty"`
	Juice       string  `json:"suco"`
	Dessert     string  `json:"sobremesa"`
	Meals       []Meal  `json:"refeicoes,omitempty"`
}

// Meal is a served meal linked to a menu.
type Meal struct {
	ID             int64  `json:"id"`
	MenuID         int64  `json:"cardapio_id"`
	Date           string `json:"data_do_cardapio,omitempty"`
	Shift          Shift  `json:"turno"`
	MainDish       string `json:"prato_principal"`
	SideDish       string `json:"acompanhamento"`
	Garnish        string `json:"guarnicao"`
	Salad          string `json:"salada"`
	Dessert        string `json:"sobremesa"`
	Juice          string `json:"suco,omitempty"`
	ExtraVacancies *int   `json:"vagas_extras_disponiveis,omitempty"`
	TotalInscribed *int   `json:"total_inscritos,omitempty"`
}

// DailyMenu is the lunch and dinner of a single day.
type DailyMenu struct {
	Date    string `json:"data"`
	Weekday string `json:"dia_semana"`
	Lunch   *Meal  `json:"almoco"`
	Dinner  *Meal  `json:"jantar"`
}
