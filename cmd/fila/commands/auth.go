package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"refeitorio-client/internal/model"
)

// LoginCmd creates the login command
func LoginCmd(app *AppContext) *cobra.Command {
	var matricula, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Autentica com matrícula e senha e guarda a sessão",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if matricula == "" {
				matricula = app.Cfg.Session.Matricula
			}
			if password == "" {
				password = app.Cfg.Session.Password
			}
			if matricula == "" {
				return errors.New("informe a matrícula com --matricula")
			}
			if password == "" {
				fmt.Fprint(app.Out, "Senha: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			payload, err := app.Auth.Login(app.Ctx, model.LoginRequest{Matricula: matricula, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Bem-vindo(a), %s (%s).\n", payload.User.Name, payload.User.Role)
			if app.SessionFile != nil {
				fmt.Fprintf(app.Out, "Sessão salva em %s\n", app.SessionFile.Path())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&matricula, "matricula", "", "Matrícula do estudante")
	cmd.Flags().StringVar(&password, "senha", "", "Senha (lida do terminal quando omitida)")
	return cmd
}

// LogoutCmd creates the logout command
func LogoutCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Encerra a sessão",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Session.IsAuthenticated() {
				fmt.Fprintln(app.Out, "Nenhuma sessão ativa.")
				return nil
			}
			err := app.Auth.Logout(app.Ctx)
			fmt.Fprintln(app.Out, "Sessão encerrada.")
			return err
		},
	}
}

// MeCmd creates the me command
func MeCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Mostra o usuário autenticado",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(); err != nil {
				return err
			}
			if err := app.Auth.FetchMe(app.Ctx); err != nil {
				return err
			}
			user, ok := app.Session.User()
			if !ok {
				return errors.New("sessão sem usuário")
			}

			fmt.Fprintf(app.Out, "%s <%s>\n", user.Name, user.Email)
			fmt.Fprintf(app.Out, "Matrícula: %s\n", orDash(user.Matricula))
			fmt.Fprintf(app.Out, "Perfil:    %s\n", user.Role)
			if user.Role == model.RoleStudent {
				fmt.Fprintf(app.Out, "Bolsista:  %s\n", yesNo(user.Bolsista))
			}
			if !app.Session.Expiry().IsZero() {
				fmt.Fprintf(app.Out, "Sessão expira em %s\n", app.Session.Expiry().Local().Format("02/01/2006 15:04"))
			}
			return nil
		},
	}
}
