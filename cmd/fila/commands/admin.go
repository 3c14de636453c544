package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"refeitorio-client/internal/admin"
	"refeitorio-client/internal/model"
)

// AdminCmd creates the admin command tree
func AdminCmd(app *AppContext) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operações administrativas",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// cobra runs only the nearest persistent pre-run.
			if root := cmd.Root(); root.PersistentPreRunE != nil {
				if err := root.PersistentPreRunE(cmd, args); err != nil {
					return err
				}
			}
			return app.requireSession()
		},
	}

	extras := &cobra.Command{
		Use:   "extras",
		Short: "Gerencia a fila de extras",
	}
	extras.AddCommand(
		adminListCmd(app),
		adminTodayCmd(app),
		adminStatsCmd(app),
		adminActionCmd(app, "aprovar", "Aprova uma inscrição", (*admin.Service).Approve),
		adminRejectCmd(app),
		adminActionCmd(app, "confirmar", "Confirma a presença de um inscrito", (*admin.Service).ConfirmAttendance),
		adminActionCmd(app, "remover", "Remove uma inscrição", (*admin.Service).Remove),
		adminBatchCmd(app),
		adminExportCmd(app),
	)
	adminCmd.AddCommand(extras)
	return adminCmd
}

func printAdminInscriptions(app *AppContext, items []model.AdminInscription) error {
	if len(items) == 0 {
		fmt.Fprintln(app.Out, "Nenhuma inscrição.")
		return nil
	}
	w := app.table()
	fmt.Fprintln(w, "ID\tALUNO\tMATRÍCULA\tREFEIÇÃO\tPOSIÇÃO\tSTATUS\tINSCRITO EM")
	for _, it := range items {
		slot, position := "-", "-"
		if it.Slot != nil {
			slot = fmt.Sprintf("%s %s", it.Slot.Date, shiftLabel(it.Slot.Shift))
		}
		if it.Position != nil {
			position = strconv.Itoa(*it.Position)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.User.Name, it.User.Matricula, slot, position, it.Status, it.InscribedAt)
	}
	return w.Flush()
}

func adminListCmd(app *AppContext) *cobra.Command {
	var f model.ExtrasFilter
	var shift string
	cmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista as inscrições",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := shiftFlag(shift)
			if err != nil {
				return err
			}
			f.Shift = s
			items, page, err := app.Admin.List(app.Ctx, f)
			if err != nil {
				return err
			}
			if err := printAdminInscriptions(app, items); err != nil {
				return err
			}
			if page.LastPage > 0 {
				fmt.Fprintf(app.Out, "Página %d de %d (%d inscrições)\n", page.CurrentPage, page.LastPage, page.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Date, "data", "", "Data da refeição (AAAA-MM-DD)")
	cmd.Flags().StringVar(&shift, "turno", "", "almoco ou jantar")
	cmd.Flags().StringVar(&f.Status, "status", "", "Situação da inscrição")
	cmd.Flags().IntVar(&f.Page, "pagina", 0, "Página")
	cmd.Flags().IntVar(&f.PerPage, "por-pagina", 0, "Itens por página")
	return cmd
}

func adminTodayCmd(app *AppContext) *cobra.Command {
	var shift string
	cmd := &cobra.Command{
		Use:   "hoje",
		Short: "Inscrições de hoje",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := shiftFlag(shift)
			if err != nil {
				return err
			}
			items, err := app.Admin.Today(app.Ctx, s)
			if err != nil {
				return err
			}
			return printAdminInscriptions(app, items)
		},
	}
	cmd.Flags().StringVar(&shift, "turno", "", "almoco ou jantar")
	return cmd
}

func adminStatsCmd(app *AppContext) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "estatisticas",
		Short: "Estatísticas da fila de extras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Admin.Stats(app.Ctx, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Período: %s a %s\n", orDash(st.Period.Start), orDash(st.Period.End))
			fmt.Fprintf(app.Out, "Inscritos: %d  Aprovados: %d  Rejeitados: %d  Aguardando: %d  Taxa de aprovação: %s\n",
				st.Summary.TotalInscribed, st.Summary.Approved, st.Summary.Rejected, st.Summary.Waiting, orDash(st.Summary.ApprovalRate))
			if len(st.TopStudents) > 0 {
				w := app.table()
				fmt.Fprintln(w, "ALUNO\tMATRÍCULA\tINSCRIÇÕES")
				for _, s := range st.TopStudents {
					fmt.Fprintf(w, "%s\t%s\t%d\n", s.Name, s.Matricula, s.TotalInscriptions)
				}
				return w.Flush()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "de", "", "Data inicial (AAAA-MM-DD)")
	cmd.Flags().StringVar(&to, "ate", "", "Data final (AAAA-MM-DD)")
	return cmd
}

func adminActionCmd(app *AppContext, use, short string, action func(s *admin.Service, ctx context.Context, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <inscricao_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := action(app.Admin, app.Ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Inscrição %d: %s concluído.\n", id, use)
			return nil
		},
	}
}

func adminRejectCmd(app *AppContext) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "rejeitar <inscricao_id>",
		Short: "Rejeita uma inscrição",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Admin.Reject(app.Ctx, id, reason); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Inscrição %d rejeitada.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "motivo", "", "Motivo da rejeição")
	return cmd
}

func adminBatchCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "aprovar-lote <inscricao_id>...",
		Short: "Aprova várias inscrições",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			res, err := app.Admin.ApproveBatch(app.Ctx, ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "%d inscrições aprovadas.\n", res.Approved)
			for _, e := range res.Errors {
				fmt.Fprintf(app.Out, "  erro: %s\n", e)
			}
			return nil
		},
	}
}

func adminExportCmd(app *AppContext) *cobra.Command {
	var p admin.ExportParams
	var shift, dir string
	cmd := &cobra.Command{
		Use:   "exportar",
		Short: "Exporta a fila de extras em planilha",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := shiftFlag(shift)
			if err != nil {
				return err
			}
			p.Shift = s
			path, err := app.Admin.ExportTo(app.Ctx, p, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Relatório salvo em %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.From, "de", "", "Data inicial (AAAA-MM-DD)")
	cmd.Flags().StringVar(&p.To, "ate", "", "Data final (AAAA-MM-DD)")
	cmd.Flags().StringVar(&shift, "turno", "", "almoco ou jantar")
	cmd.Flags().StringVar(&dir, "dir", ".", "Diretório de destino")
	return cmd
}
