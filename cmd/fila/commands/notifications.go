package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"refeitorio-client/internal/model"
)

// NotificationsCmd creates the notificacoes command
func NotificationsCmd(app *AppContext) *cobra.Command {
	var markID int64
	var markAll, all bool

	cmd := &cobra.Command{
		Use:   "notificacoes",
		Short: "Lista notificações não lidas ou marca como lidas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}

			switch {
			case markAll:
				app.Inbox.LoadUnread(app.Ctx)
				app.Inbox.MarkAllRead(app.Ctx)
				if n := app.Inbox.UnreadCount(); n > 0 {
					return fmt.Errorf("%d notificações continuam não lidas", n)
				}
				fmt.Fprintln(app.Out, "Todas as notificações foram marcadas como lidas.")
				return nil
			case markID > 0:
				// The inbox swallows failures, so call the service directly.
				if err := app.Notifications.MarkRead(app.Ctx, markID); err != nil {
					return err
				}
				fmt.Fprintf(app.Out, "Notificação %d marcada como lida.\n", markID)
				return nil
			}

			var items []model.Notification
			if all {
				list, err := app.Notifications.List(app.Ctx)
				if err != nil {
					return err
				}
				items = list
			} else {
				app.Inbox.LoadUnread(app.Ctx)
				items = app.Inbox.Unread()
			}

			if counter, err := app.Notifications.Counter(app.Ctx); err == nil {
				fmt.Fprintf(app.Out, "%d não lidas de %d.\n", counter.Unread, counter.Total)
			}
			if len(items) == 0 {
				fmt.Fprintln(app.Out, "Nenhuma notificação.")
				return nil
			}
			w := app.table()
			fmt.Fprintln(w, "ID\tTIPO\tTÍTULO\tMENSAGEM\tLIDA\tCRIADA")
			for _, n := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", n.ID, n.Kind, n.Title, n.Message, yesNo(n.Read), n.CreatedAt)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&markID, "ler", 0, "Marca a notificação com este ID como lida")
	cmd.Flags().BoolVar(&markAll, "todas", false, "Marca todas as notificações como lidas")
	cmd.Flags().BoolVar(&all, "incluir-lidas", false, "Lista também as notificações já lidas")
	cmd.MarkFlagsMutuallyExclusive("ler", "todas")
	return cmd
}
