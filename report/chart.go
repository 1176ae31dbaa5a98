// Package report renders stored samples as charts and listings.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"sysmon/storage"
)

const (
	Title    = "System Metrics Over Time"
	cpuLabel = "CPU Usage (%)"
	ramLabel = "RAM Usage (%)"
)

// ErrNoData is returned when asked to chart an empty series.
var ErrNoData = errors.New("no samples to report")

// SavePNG draws CPU and RAM over time and writes the chart to path. The
// image format follows the file extension; callers pass a .png name.
func SavePNG(series *storage.Series, path string) error {
	if series.Len() == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = Title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Usage (%)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "01-02\n15:04:05"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	order := series.Chronological()
	cpu := make(plotter.XYs, len(order))
	ram := make(plotter.XYs, len(order))
	for k, i := range order {
		x := float64(series.Timestamps[i].UnixNano()) / 1e9
		cpu[k] = plotter.XY{X: x, Y: series.CPU[i]}
		ram[k] = plotter.XY{X: x, Y: series.RAM[i]}
	}

	if err := plotutil.AddLinePoints(p, cpuLabel, cpu, ramLabel, ram); err != nil {
		return fmt.Errorf("build chart: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// Render draws CPU and RAM as a terminal line chart on w.
func Render(w io.Writer, series *storage.Series, height int) error {
	if series.Len() == 0 {
		return ErrNoData
	}

	order := series.Chronological()
	cpu := make([]float64, len(order))
	ram := make([]float64, len(order))
	for k, i := range order {
		cpu[k] = series.CPU[i]
		ram[k] = series.RAM[i]
	}

	first := series.Timestamps[order[0]]
	last := series.Timestamps[order[len(order)-1]]
	graph := asciigraph.PlotMany([][]float64{cpu, ram},
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("%s (%s .. %s)", Title,
			first.Local().Format("2006-01-02 15:04:05"),
			last.Local().Format("2006-01-02 15:04:05"))),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Blue),
		asciigraph.SeriesLegends(cpuLabel, ramLabel),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}
