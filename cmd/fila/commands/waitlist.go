package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"refeitorio-client/internal/model"
	"refeitorio-client/internal/waitlist"
)

func shiftLabel(s model.Shift) string {
	switch s {
	case model.ShiftLunch:
		return "almoço"
	case model.ShiftDinner:
		return "jantar"
	}
	return string(s)
}

// AvailableCmd creates the disponiveis command
func AvailableCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disponiveis",
		Short: "Lista as refeições abertas para inscrição extra",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			if err := app.Waitlist.LoadAvailable(app.Ctx, false); err != nil {
				return err
			}

			slots := app.Waitlist.Available()
			if len(slots) == 0 {
				fmt.Fprintln(app.Out, "Nenhuma refeição disponível para inscrição.")
				return nil
			}
			w := app.table()
			fmt.Fprintln(w, "ID\tDATA\tTURNO\tPRATO\tVAGAS\tINSCRITOS\tLIMITE\tINSCRITO")
			for _, s := range slots {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					s.ID, s.Date, shiftLabel(s.Shift), orDash(s.MainDish), s.Remaining, s.TotalInscribed, orDash(s.Cutoff), yesNo(s.AlreadyInscribed))
			}
			return w.Flush()
		},
	}
}

// MineCmd creates the minhas command
func MineCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "minhas",
		Short: "Lista suas inscrições na fila de extras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			app.Waitlist.LoadMine(app.Ctx)
			if app.Waitlist.State(waitlist.ResourceMine) == waitlist.LoadFailed {
				fmt.Fprintln(app.Out, "Não foi possível carregar suas inscrições.")
			}

			mine := app.Waitlist.Mine()
			if len(mine) == 0 {
				fmt.Fprintln(app.Out, "Você não tem inscrições.")
				return nil
			}
			w := app.table()
			fmt.Fprintln(w, "INSCRIÇÃO\tREFEIÇÃO\tDATA\tTURNO\tPOSIÇÃO\tSITUAÇÃO")
			for _, ins := range mine {
				date, shift := "-", "-"
				if ins.Slot != nil {
					date, shift = ins.Slot.Date, shiftLabel(ins.Slot.Shift)
				}
				position := "-"
				if ins.Position != nil {
					position = strconv.Itoa(*ins.Position)
				}
				status := "aguardando"
				switch {
				case ins.Canceled:
					status = "cancelada"
				case ins.Confirmed:
					status = "confirmada"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", ins.ID, ins.SlotID, date, shift, position, status)
			}
			return w.Flush()
		},
	}
}

// InscribeCmd creates the inscrever command
func InscribeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inscrever <refeicao_id>",
		Short: "Entra na fila de extras de uma refeição",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slotID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.requireSession(); err != nil {
				return err
			}
			// Both lists back the local already-inscribed check.
			app.Waitlist.LoadMine(app.Ctx)
			if err := app.Waitlist.LoadAvailable(app.Ctx, false); err != nil {
				return err
			}

			ins, err := app.Waitlist.Inscribe(app.Ctx, slotID)
			var refreshErr *waitlist.RefreshError
			switch {
			case errors.Is(err, waitlist.ErrAlreadyInscribed):
				return errors.New("você já está inscrito nesta refeição")
			case errors.As(err, &refreshErr):
				fmt.Fprintln(app.Out, "Aviso: a lista de refeições não pôde ser atualizada.")
			case err != nil:
				return err
			}

			fmt.Fprintf(app.Out, "Inscrição %d realizada na refeição %d.", ins.ID, ins.SlotID)
			if ins.Position != nil {
				fmt.Fprintf(app.Out, " Posição na fila: %d.", *ins.Position)
			}
			fmt.Fprintln(app.Out)
			return nil
		},
	}
}

// CancelCmd creates the cancelar command
func CancelCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancelar <inscricao_id>",
		Short: "Cancela uma inscrição na fila de extras",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.requireSession(); err != nil {
				return err
			}

			err = app.Waitlist.Cancel(app.Ctx, id)
			var refreshErr *waitlist.RefreshError
			if err != nil && !errors.As(err, &refreshErr) {
				return err
			}
			if refreshErr != nil {
				fmt.Fprintln(app.Out, "Aviso: a lista de refeições não pôde ser atualizada.")
			}
			fmt.Fprintf(app.Out, "Inscrição %d cancelada.\n", id)
			return nil
		},
	}
}

// PositionCmd creates the posicao command
func PositionCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "posicao",
		Short: "Mostra sua posição nas filas de extras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			if err := app.Waitlist.LoadPositions(app.Ctx); err != nil {
				return err
			}

			positions := app.Waitlist.Positions()
			if len(positions) == 0 {
				fmt.Fprintln(app.Out, "Você não está em nenhuma fila.")
				return nil
			}
			w := app.table()
			fmt.Fprintln(w, "REFEIÇÃO\tPOSIÇÃO\tSTATUS\tPREVISÃO")
			for _, p := range positions {
				fmt.Fprintf(w, "%d\t%d/%d\t%s\t%s\n", p.SlotID, p.Position, p.Total, p.Status, orDash(p.Estimate))
			}
			return w.Flush()
		},
	}
}
