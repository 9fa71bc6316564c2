// ADWS CLI — запуск workflow в текущем checkout и просмотр истории.
//
// Использование:
//
//	adws [--config FILE] [--json] [--api-url URL] <command> [flags]
//
// Команды:
//
//	run        Запуск workflow или команды (/build, /test, ...)
//	verify     Все проверки проекта с отчётом "N checks failed"
//	workflows  Список и описание workflow
//	guard      Проверка задачи перед диспетчеризацией
//	runs       История выполнения (через API worker'а)
//	dispatch   Постановка в очередь worker'а (через API)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/adws/internal/app"
	"github.com/shaiso/adws/internal/cli"
	"github.com/shaiso/adws/internal/config"
	"github.com/shaiso/adws/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var cfgFile string
	var apiURL string
	var jsonOutput bool
	var noHistory bool

	rootCmd := &cobra.Command{
		Use:           "adws",
		Short:         "ADWS — AI developer workflow runner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./adws.yaml or $XDG_CONFIG_HOME/adws/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8082", "Worker API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record runs in the database")

	appFn := func() (*app.App, error) {
		v, err := config.New(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg, err := config.Load(v)
		if err != nil {
			return nil, err
		}

		// Логи в stderr: stdout занят данными
		logger := telemetry.SetupLoggerWith(telemetry.LogOptions{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})

		return app.New(rootCmd.Context(), app.Options{
			Config:    cfg,
			Logger:    logger,
			NoHistory: noHistory,
		})
	}
	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(appFn, outputFn),
		cli.NewVerifyCmd(appFn, outputFn),
		cli.NewWorkflowsCmd(appFn, outputFn),
		cli.NewGuardCmd(appFn, outputFn),
		cli.NewRunsCmd(clientFn, outputFn),
		cli.NewDispatchCmd(clientFn, outputFn),
	)

	// Ctrl-C отменяет текущий шаг; finalize всё равно выполняется
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrWorkflowFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		cancel()
		os.Exit(1)
	}
}
