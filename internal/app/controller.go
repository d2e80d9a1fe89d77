package app

import (
	"fmt"
	"os"

	"github.com/dori/taskdeck/internal/csvio"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/ui"
)

// Controller builds the interaction controller over the app's store
func (a *App) Controller() *ui.Controller {
	return ui.NewController(a.Tasks, ui.ControllerOptions{
		Timer:       a.Timer,
		Notifier:    a.Status,
		Logger:      a.Logger,
		LabelName:   a.Refs.LabelName,
		Prefs:       a.LoadPrefs(),
		SavePrefs:   a.SavePrefs,
		Export:      a.ExportCSV,
		OnTimeEntry: a.LogTimeEntry,
	})
}

// ExportCSV writes tasks to a new file in the data directory and returns
// its path
func (a *App) ExportCSV(tasks []model.Task) (string, error) {
	path := a.ExportPath("csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := csvio.Export(f, tasks); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
