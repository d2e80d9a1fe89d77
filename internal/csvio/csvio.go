// Package csvio moves tasks in and out of CSV files.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/model"
)

// Columns written by Export, in order
var Columns = []string{
	"id", "title", "description", "status", "priority", "category", "type",
	"dueDate", "projectId", "assignedTo", "estimate", "timeSpent",
	"tags", "labels", "createdAt", "updatedAt",
}

// listSep joins list-valued cells
const listSep = ";"

var listFields = map[string]bool{
	"tags":         true,
	"labels":       true,
	"watchers":     true,
	"dependencies": true,
}

// Importer receives parsed records and reports how many it stored
type Importer interface {
	Import(records []map[string]any) int
}

// Result summarizes an import
type Result struct {
	Imported int
	Skipped  int
}

// Export writes tasks as CSV with a header row
func Export(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(time.RFC3339)
		}
		row := []string{
			t.ID,
			t.Title,
			t.Description,
			string(t.Status),
			string(t.Priority),
			t.Category,
			t.Type,
			due,
			t.ProjectID,
			t.AssignedTo,
			strconv.FormatFloat(t.Estimate, 'f', -1, 64),
			strconv.FormatFloat(t.TimeSpent, 'f', -1, 64),
			strings.Join(t.Tags, listSep),
			strings.Join(t.Labels, listSep),
			t.CreatedAt.Format(time.RFC3339),
			t.UpdatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses CSV into raw task records keyed by field name. Rows with
// fewer cells than the header are skipped and counted; they never abort
// the read.
func Read(r io.Reader, logger *log.Logger) ([]map[string]any, int, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = fieldName(h)
	}

	var records []map[string]any
	skipped := 0
	line := 1
	for {
		row, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Printf("csv line %d: %v", line, err)
			skipped++
			continue
		}
		if len(row) < len(fields) {
			logger.Printf("csv line %d: expected %d fields, got %d; skipping", line, len(fields), len(row))
			skipped++
			continue
		}

		rec := make(map[string]any, len(fields))
		for i, f := range fields {
			if f == "" || f == "id" || f == "createdAt" || f == "updatedAt" {
				continue
			}
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			if listFields[f] {
				rec[f] = splitList(cell)
				continue
			}
			rec[f] = cell
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Import reads CSV and hands the records to dst
func Import(r io.Reader, dst Importer, logger *log.Logger) (Result, error) {
	records, skipped, err := Read(r, logger)
	if err != nil {
		return Result{}, err
	}
	imported := dst.Import(records)
	return Result{
		Imported: imported,
		Skipped:  skipped + len(records) - imported,
	}, nil
}

func splitList(cell string) []any {
	parts := strings.FieldsFunc(cell, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var headerAliases = map[string]string{
	"name":       "title",
	"task":       "title",
	"due":        "dueDate",
	"duedate":    "dueDate",
	"project":    "projectId",
	"projectid":  "projectId",
	"assignee":   "assignedTo",
	"assignedto": "assignedTo",
	"timespent":  "timeSpent",
	"hours":      "timeSpent",
	"createdat":  "createdAt",
	"updatedat":  "updatedAt",
}

// fieldName maps a header cell onto a task field name
func fieldName(header string) string {
	key := strings.ToLower(strings.TrimSpace(header))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	key = strings.TrimPrefix(key, "\ufeff")
	if alias, ok := headerAliases[key]; ok {
		return alias
	}
	for _, c := range Columns {
		if strings.EqualFold(c, key) {
			return c
		}
	}
	switch key {
	case "notes", "watchers", "dependencies":
		return key
	}
	return ""
}
