// Package report renders a printable PDF summary of the board.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/view"
	"github.com/jung-kurt/gofpdf"
)

// Data is everything a report shows
type Data struct {
	Owner       string
	GeneratedAt time.Time
	Tasks       []model.Task
	StatusOrder []model.Status
}

// Generator lays out reports with the built-in Helvetica font
type Generator struct {
	font string
}

// NewGenerator creates a report generator
func NewGenerator() *Generator {
	return &Generator{font: "Helvetica"}
}

// WriteFile renders the report to path, creating parent directories
func (g *Generator) WriteFile(path string, data Data) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Write(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders the report to w
func (g *Generator) Write(w io.Writer, data Data) error {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	stats := view.ComputeStats(data.Tasks, data.GeneratedAt)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Task report", false)
	pdf.SetAuthor(data.Owner, false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.font, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(g.font, "B", 18)
	pdf.CellFormat(0, 10, "Task report", "", 1, "C", false, 0, "")
	pdf.SetFont(g.font, "", 11)
	sub := data.GeneratedAt.Format("Monday, January 2, 2006 15:04")
	if data.Owner != "" {
		sub = tr(data.Owner) + "  -  " + sub
	}
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Summary")
	g.kvLine(pdf, "Tasks", fmt.Sprintf("%d (%d done)", stats.Total, stats.Completed))
	g.kvLine(pdf, "Due today", fmt.Sprintf("%d", stats.DueToday))
	g.kvLine(pdf, "Upcoming", fmt.Sprintf("%d", stats.Upcoming))
	g.kvLine(pdf, "Overdue", fmt.Sprintf("%d", stats.Overdue))
	g.kvLine(pdf, "Streak", fmt.Sprintf("%d days", stats.Streak))
	g.kvLine(pdf, "Focus score", fmt.Sprintf("%d%%", stats.FocusScore))
	if stats.HasBestDay {
		g.kvLine(pdf, "Best day", stats.BestDay.String())
	}
	g.kvLine(pdf, "Time logged", fmt.Sprintf("%.1f h of %.1f h estimated", stats.HoursSpent, stats.HoursPlanned))
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Last 7 days")
	g.weeklyChart(pdf, stats.Weekly)
	g.hr(pdf)

	g.sectionTitle(pdf, "Insights")
	for _, line := range view.Insights(stats) {
		pdf.MultiCell(0, 6, "- "+tr(line), "", "L", false)
	}
	pdf.Ln(2)
	g.hr(pdf)

	for _, status := range view.StatusOrder(data.StatusOrder) {
		tasks := tasksIn(data.Tasks, status)
		if len(tasks) == 0 {
			continue
		}
		g.sectionTitle(pdf, fmt.Sprintf("%s (%d)", status.Label(), len(tasks)))
		for _, t := range tasks {
			g.taskRow(pdf, tr, t)
		}
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func tasksIn(tasks []model.Task, status model.Status) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return view.SortByPriority(out)
}

func (g *Generator) taskRow(pdf *gofpdf.Fpdf, tr func(string) string, t model.Task) {
	due := ""
	if t.DueDate != nil {
		due = t.DueDate.Local().Format("Jan 2")
	}
	pdf.SetFont(g.font, "", 10)
	pdf.CellFormat(22, 6, string(t.Priority), "", 0, "L", false, 0, "")
	pdf.CellFormat(110, 6, truncate(tr(t.Title), 60), "", 0, "L", false, 0, "")
	pdf.CellFormat(18, 6, due, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%.1fh", t.TimeSpent), "", 1, "R", false, 0, "")
}

func (g *Generator) weeklyChart(pdf *gofpdf.Fpdf, days []view.DayCount) {
	maxCount := 1
	for _, d := range days {
		if d.Count > maxCount {
			maxCount = d.Count
		}
	}

	const barWidth, maxHeight, gap = 14.0, 30.0, 6.0
	left := 30.0
	base := pdf.GetY() + maxHeight + 2
	pdf.SetFillColor(94, 129, 172)
	pdf.SetFont(g.font, "", 9)
	for i, d := range days {
		x := left + float64(i)*(barWidth+gap)
		h := maxHeight * float64(d.Count) / float64(maxCount)
		if h > 0 {
			pdf.Rect(x, base-h, barWidth, h, "F")
		}
		pdf.SetXY(x, base+1)
		pdf.CellFormat(barWidth, 5, d.Date.Format("Mon"), "", 0, "C", false, 0, "")
		pdf.SetXY(x, base+6)
		pdf.CellFormat(barWidth, 5, fmt.Sprintf("%d", d.Count), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(20, base+13)
}

func (g *Generator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.font, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.font, "", 11)
}

func (g *Generator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.font, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.font, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *Generator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
