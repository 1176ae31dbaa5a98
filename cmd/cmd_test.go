package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sysmon/collector"
	"sysmon/config"
	"sysmon/storage"
)

var clock = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

// tickingCollector returns a new sample one second apart on every call.
type tickingCollector struct {
	calls atomic.Int64
	topN  int
}

func (c *tickingCollector) Collect(ctx context.Context) (collector.Sample, error) {
	n := c.calls.Add(1)
	procs := []collector.ProcessInfo{{PID: int32(100 + n), Name: "busy", CPUPercent: float64(n)}}
	return collector.Sample{
		Timestamp:    clock.Add(time.Duration(n) * time.Second),
		CPU:          10 + float64(n),
		RAM:          30 + float64(n),
		TopProcesses: collector.TopN(procs, c.topN),
	}, nil
}

type harness struct {
	dir  string
	db   string
	fake *tickingCollector
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	return &harness{
		dir:  dir,
		db:   filepath.Join(dir, "metrics.db"),
		fake: &tickingCollector{},
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	a := &app{
		newCollector: func(cfg *config.Config, log *zap.Logger, topN int) collector.Collector {
			h.fake.topN = topN
			return h.fake
		},
		now: func() time.Time { return clock.Add(time.Hour) },
	}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", h.db, "--report-dir", h.dir, "--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) seed(t *testing.T, n int) {
	t.Helper()
	s := storage.New(h.db, nil)
	for i := 1; i <= n; i++ {
		_, err := s.Insert(context.Background(), collector.Sample{
			Timestamp: clock.Add(time.Duration(i) * time.Second),
			CPU:       10 + float64(i),
			RAM:       30 + float64(i),
			TopProcesses: []collector.ProcessInfo{
				{PID: int32(i), Name: "proc", CPUPercent: float64(i)},
			},
		})
		require.NoError(t, err)
	}
}

func (h *harness) count(t *testing.T) int64 {
	t.Helper()
	n, err := storage.New(h.db, nil).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCollect(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "collect", "--interval", "0.01", "--duration", "0.05", "--top", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "Collecting metrics every ")
	assert.Contains(t, out, "[2025-07-01T12:00:01.000000Z] CPU: 11.0% | RAM: 31.0%")
	assert.Equal(t, 3, h.fake.topN)

	stored := h.count(t)
	assert.GreaterOrEqual(t, stored, int64(1))
	assert.Equal(t, h.fake.calls.Load(), stored)
}

func TestCollect_Reset(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 4)

	_, err := h.run(t, "", "collect", "--interval", "0", "--duration", "0", "--reset")
	require.NoError(t, err)
	assert.EqualValues(t, 0, h.count(t))
}

func TestCollect_NegativeInterval(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "collect", "--interval=-1", "--duration", "1")
	assert.Error(t, err)
}

func TestShow(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 6)

	out, err := h.run(t, "", "show", "--limit", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "CPU: 16.0% | RAM: 36.0%")
	assert.Contains(t, out, "CPU: 15.0% | RAM: 35.0%")
	assert.NotContains(t, out, "CPU: 14.0%")
	assert.Less(t, strings.Index(out, "CPU: 16.0%"), strings.Index(out, "CPU: 15.0%"))
}

func TestShow_EmptyStore(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No samples recorded.")
}

func TestReport_Save(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 5)

	out, err := h.run(t, "", "report", "--limit", "3", "--save", "--output", "test_report.png")
	require.NoError(t, err)

	path := filepath.Join(h.dir, "test_report.png")
	assert.Contains(t, out, "Report saved as "+path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestReport_Terminal(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 5)

	out, err := h.run(t, "", "report", "--since", "2025-07-01T12:00:02Z")
	require.NoError(t, err)
	assert.Contains(t, out, "System Metrics Over Time")
}

func TestReport_NoData(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 3)

	out, err := h.run(t, "", "report", "--since", "2030-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No samples to report.")
}

func TestReport_FlagErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "report", "--since", "2025-07-01", "--last", "hour")
	assert.Error(t, err)

	_, err = h.run(t, "", "report", "--last", "week")
	assert.ErrorContains(t, err, "hour or day")

	_, err = h.run(t, "", "report", "--since", "soon")
	assert.ErrorContains(t, err, "--since")
}

func TestParseTimeFilter(t *testing.T) {
	now := clock

	got, err := parseTimeFilter("", "", now)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = parseTimeFilter("", "hour", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Hour), got)

	got, err = parseTimeFilter("", "day", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), got)

	got, err = parseTimeFilter("2025-07-01T10:00:00Z", "day", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(-2*time.Hour)))
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 4)

	out, err := h.run(t, "", "export", "--limit", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "2025-07-01T12:00:02.000000Z", first["timestamp"])
	assert.Equal(t, 12.0, first["cpu"])

	other := newHarness(t)
	out, err = other.run(t, out, "import", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 samples")

	series, err := storage.New(other.db, nil).QueryLast(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{14, 13, 12}, series.CPU)
	assert.Equal(t, `[{"pid":4,"name":"proc","cpu_percent":4}]`, series.TopProcesses[0])
}

func TestExport_Since(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 4)

	out, err := h.run(t, "", "export", "--since", "2025-07-01T12:00:03Z")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "12:00:03")
	assert.Contains(t, lines[1], "12:00:04")
}

func TestImport_RejectsInvalidFileAtomically(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.dir, "samples.jsonl")
	content := `{"timestamp":"2025-07-01T12:00:00Z","cpu":1,"ram":2,"top_processes":[]}

{"timestamp":"2025-07-01T12:00:01Z","cpu":"busy","ram":2,"top_processes":[]}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := h.run(t, "", "import", path)
	require.ErrorIs(t, err, collector.ErrValidation)
	assert.ErrorContains(t, err, "line 3")
	assert.EqualValues(t, 0, h.count(t))
}

func TestImport_MissingFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "import", filepath.Join(h.dir, "missing.jsonl"))
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 3)

	out, err := h.run(t, "", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Store reset: "+h.db)
	assert.EqualValues(t, 0, h.count(t))
}

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("a\n\n  \nb\r\nc"))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, 1, lines[0].number)
	assert.Equal(t, 4, lines[1].number)
	assert.Equal(t, "b", string(lines[1].text))
	assert.Equal(t, 5, lines[2].number)
}
