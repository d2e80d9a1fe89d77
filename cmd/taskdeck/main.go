package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/taskdeck/internal/app"
	"github.com/dori/taskdeck/internal/config"
	"github.com/dori/taskdeck/internal/ui"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskdeck",
		Short:   "taskdeck - a kanban board for your terminal",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	rootCmd.AddCommand(tuiCmd())
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the board (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI()
		},
	}
}

func runTUI() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg, app.Options{Lock: true, LogFile: true})
	if err != nil {
		return err
	}
	defer application.Close()

	ctrl := application.Controller()
	events := ui.NewEvents()
	application.Tasks.OnChange(events.TasksChanged)
	application.Refs.OnChange(events.TasksChanged)
	application.Status.SetSink(events.Status)

	p := tea.NewProgram(
		ui.NewRootModel(ctrl, events, application.Session.Name()),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	application.Start(context.Background())

	_, err = p.Run()
	application.Tasks.Wait()
	return err
}
