package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"deskshell/internal/core"
)

// Runtime - собранное приложение, которым управляет CLI.
type Runtime interface {
	Registry() *core.Registry
	Serve(ctx context.Context) error
	Close() error
}

// Factory строит Runtime по пути к конфигу.
type Factory func(ctx context.Context, configPath string) (Runtime, error)

// New создает корневую CLI-команду.
func New(build Factory, version string) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "deskshell",
		Short:         "Backend настольного приложения",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к YAML-конфигу")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(build, &configPath))
	root.AddCommand(newCommandsCmd(build, &configPath))
	root.AddCommand(newInvokeCmd(build, &configPath))

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Показать версию",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", version)
		},
	}
}

func newServeCmd(build Factory, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Зарегистрировать команды и обслуживать вызовы до SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := build(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			return rt.Serve(ctx)
		},
	}
}

func newCommandsCmd(build Factory, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "Список зарегистрированных команд",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := build(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()
			for _, name := range rt.Registry().Commands() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newInvokeCmd(build Factory, configPath *string) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "invoke <command> [key=value ...]",
		Short: "Выполнить одну команду и напечатать ответ в JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := core.ArgsFromPairs(args[1:])
			if err != nil {
				return err
			}
			rt, err := build(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			resp, execErr := rt.Registry().Execute(ctx, args[0], callArgs)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
			return execErr
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "ограничение времени вызова (0 - без ограничения)")
	return cmd
}
