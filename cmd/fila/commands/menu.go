package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"refeitorio-client/internal/model"
	"refeitorio-client/internal/parse"
)

func shiftFlag(raw string) (model.Shift, error) {
	if raw == "" {
		return "", nil
	}
	return parse.ParseShift(raw)
}

// MenuCmd creates the cardapio command
func MenuCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cardapio",
		Short: "Consulta o cardápio do dia, da semana ou do mês",
	}
	cmd.AddCommand(menuTodayCmd(app), menuWeekCmd(app), menuMonthCmd(app))
	return cmd
}

func printMeal(app *AppContext, label string, m *model.Meal) {
	if m == nil {
		fmt.Fprintf(app.Out, "%s: sem cardápio\n", label)
		return
	}
	fmt.Fprintf(app.Out, "%s: %s, %s, %s, %s. Sobremesa: %s\n", label, m.MainDish, m.SideDish, m.Garnish, m.Salad, orDash(m.Dessert))
	if m.ExtraVacancies != nil {
		fmt.Fprintf(app.Out, "  vagas extras: %d\n", *m.ExtraVacancies)
	}
}

func menuTodayCmd(app *AppContext) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "hoje",
		Short: "Cardápio de hoje",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				day model.DailyMenu
				err error
			)
			if public || !app.Session.IsAuthenticated() {
				day, err = app.Menu.TodayPublic(app.Ctx)
			} else {
				day, err = app.Menu.Today(app.Ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "%s %s\n", orDash(day.Weekday), day.Date)
			printMeal(app, "Almoço", day.Lunch)
			printMeal(app, "Jantar", day.Dinner)
			return nil
		},
	}
	cmd.Flags().BoolVar(&public, "publico", false, "Usa o cardápio público, sem login")
	return cmd
}

func printMenus(app *AppContext, menus []model.Menu) error {
	if len(menus) == 0 {
		fmt.Fprintln(app.Out, "Nenhum cardápio encontrado.")
		return nil
	}
	w := app.table()
	fmt.Fprintln(w, "DATA\tTURNO\tPRATO\tACOMPANHAMENTO\tSOBREMESA")
	for _, m := range menus {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Date, shiftLabel(m.Shift), m.MainDish, m.SideDish, orDash(m.Dessert))
	}
	return w.Flush()
}

func menuWeekCmd(app *AppContext) *cobra.Command {
	var shift, date string
	cmd := &cobra.Command{
		Use:   "semana",
		Short: "Cardápio da semana",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := shiftFlag(shift)
			if err != nil {
				return err
			}
			menus, err := app.Menu.Weekly(app.Ctx, s, date)
			if err != nil {
				return err
			}
			return printMenus(app, menus)
		},
	}
	cmd.Flags().StringVar(&shift, "turno", "", "almoco ou jantar")
	cmd.Flags().StringVar(&date, "data", "", "Um dia da semana desejada (AAAA-MM-DD)")
	return cmd
}

func menuMonthCmd(app *AppContext) *cobra.Command {
	var shift string
	var perPage int
	cmd := &cobra.Command{
		Use:   "mes",
		Short: "Cardápio do mês",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := shiftFlag(shift)
			if err != nil {
				return err
			}
			menus, err := app.Menu.Monthly(app.Ctx, s, perPage)
			if err != nil {
				return err
			}
			return printMenus(app, menus)
		},
	}
	cmd.Flags().StringVar(&shift, "turno", "", "almoco ou jantar")
	cmd.Flags().IntVar(&perPage, "por-pagina", 31, "Quantidade de cardápios")
	return cmd
}
