package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"refeitorio-client/cmd/fila/commands"
	"refeitorio-client/internal/gateway"
)

var (
	configPath string
	verbose    bool
)

func main() {
	appCtx := &commands.AppContext{Ctx: context.Background(), Out: os.Stdout}

	rootCmd := &cobra.Command{
		Use:           "fila",
		Short:         "Fila de extras - inscrição em refeições extras do restaurante estudantil",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return appCtx.Init(configPath, verbose)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appCtx.Logger != nil {
				appCtx.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config/config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(commands.LoginCmd(appCtx))
	rootCmd.AddCommand(commands.LogoutCmd(appCtx))
	rootCmd.AddCommand(commands.MeCmd(appCtx))
	rootCmd.AddCommand(commands.AvailableCmd(appCtx))
	rootCmd.AddCommand(commands.MineCmd(appCtx))
	rootCmd.AddCommand(commands.InscribeCmd(appCtx))
	rootCmd.AddCommand(commands.CancelCmd(appCtx))
	rootCmd.AddCommand(commands.PositionCmd(appCtx))
	rootCmd.AddCommand(commands.NotificationsCmd(appCtx))
	rootCmd.AddCommand(commands.MenuCmd(appCtx))
	rootCmd.AddCommand(commands.AdminCmd(appCtx))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "erro:", gateway.Message(err, ""))
		os.Exit(1)
	}
}
