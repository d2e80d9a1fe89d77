package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/app"
	"github.com/dori/taskdeck/internal/csvio"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/report"
	"github.com/dori/taskdeck/internal/ui"
	"github.com/dori/taskdeck/internal/view"
	"github.com/spf13/cobra"
)

const quickAddHelp = `Quick Add Syntax:
  taskdeck add "Buy groceries"
  taskdeck add "Review PR @work !high due:tomorrow #Work"

  Tags:      @tag          (e.g., @home, @work, @errands)
  Priority:  !low !medium !high !critical
  Due date:  due:today due:tomorrow due:friday due:2024-01-15
  Category:  #Work #Personal`

// openApp opens the configured backend without the TUI lock. When load is
// set it waits for the first snapshot of the task collection.
func openApp(load bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, app.Options{NoSeed: true})
	if err != nil {
		return nil, err
	}
	if !load {
		return a, nil
	}

	a.Start(context.Background())
	deadline := time.Now().Add(10 * time.Second)
	for !a.Tasks.Loaded() {
		if time.Now().After(deadline) {
			a.Close()
			return nil, fmt.Errorf("timed out loading tasks")
		}
		time.Sleep(20 * time.Millisecond)
	}
	return a, nil
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <task>",
		Short:   "Quick add a task",
		Long:    quickAddHelp,
		Args:    cobra.MinimumNArgs(1),
		Example: `  taskdeck add "Review PR @work !high due:tomorrow"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			fields := ui.ParseQuickAdd(strings.Join(args, " "), time.Now())
			task, err := a.Tasks.Add(fields)
			if err != nil {
				return err
			}
			a.Tasks.Wait()

			fmt.Printf("Created: %s\n", task.Title)
			if task.DueDate != nil {
				fmt.Printf("Due: %s\n", task.DueDate.Format("Mon Jan 2"))
			}
			if task.Priority != model.PriorityMedium {
				fmt.Printf("Priority: %s\n", task.Priority)
			}
			if len(task.Tags) > 0 {
				fmt.Printf("Tags: %s\n", strings.Join(task.Tags, ", "))
			}
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import tasks from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := csvio.Import(f, a.Tasks, a.Logger)
			if err != nil {
				return err
			}
			a.Tasks.Wait()

			fmt.Printf("Imported %d task(s)", res.Imported)
			if res.Skipped > 0 {
				fmt.Printf(", skipped %d", res.Skipped)
			}
			fmt.Println()
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all tasks as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			if out == "" || out == "-" {
				return csvio.Export(os.Stdout, a.Tasks.Tasks())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := csvio.Export(f, a.Tasks.Tasks()); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <out.pdf>",
		Short: "Write a PDF summary of the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			data := report.Data{
				Owner:       a.Session.Name(),
				GeneratedAt: time.Now(),
				Tasks:       a.Tasks.Tasks(),
				StatusOrder: view.StatusOrder(a.LoadPrefs().StatusOrder),
			}
			if err := report.NewGenerator().WriteFile(args[0], data); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", args[0])
			return nil
		},
	}
}
