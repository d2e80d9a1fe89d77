package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/stretchr/testify/require"
)

func sampleTasks() []model.Task {
	var tasks []model.Task
	for i, fields := range []map[string]any{
		{"title": "Ship release", "priority": "critical", "status": "in-progress", "timeSpent": 2},
		{"title": "Café menu", "priority": "low", "dueDate": "2024-05-02"},
		{"title": "Done thing", "status": "done", "updatedAt": "2024-05-01T08:00:00Z"},
	} {
		t := model.Normalize(fields)
		t.ID = string(rune('a' + i))
		tasks = append(tasks, t)
	}
	return tasks
}

func TestWriteProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	err := NewGenerator().Write(&buf, Data{
		Owner:       "Ann",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Tasks:       sampleTasks(),
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.pdf")
	require.NoError(t, NewGenerator().WriteFile(path, Data{Tasks: sampleTasks()}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}
