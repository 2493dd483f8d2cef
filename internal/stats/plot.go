package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named data series. NaN values are gaps: nothing is drawn and
// the line is broken around them.
type Series struct {
	Name   string
	Values []float64
}

// PlotOptions controls Plot. Zero values pick defaults.
type PlotOptions struct {
	Width  int
	Height int
	Color  bool
	// Label formats axis values; defaults to %.1f.
	Label func(float64) string
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 12
	minPlotWidth        = 10
	axisSeparator       = " │ "
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dotted", period: 4, on: 1},
	{name: "dashed", period: 6, on: 3},
}

var colorPalette = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m", "\x1b[32m"}

// Plot draws all series on one shared vertical scale with braille dots.
func Plot(w io.Writer, title string, series []Series, opts PlotOptions) error {
	series = filterSeries(series)
	if len(series) == 0 {
		return nil
	}
	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	label := opts.Label
	if label == nil {
		label = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}

	minVal, maxVal := sharedRange(series)
	if math.Abs(maxVal-minVal) < 1e-9 {
		minVal--
		maxVal++
	}
	axis := makeAxisLabels(height, minVal, maxVal, label)
	axisWidth := 0
	for _, l := range axis {
		axisWidth = max(axisWidth, runewidth.StringWidth(l))
	}
	width := opts.Width
	if width <= 0 {
		width = PlotWidthFor(terminalWidth(), axisWidth)
	}
	width = max(width, minPlotWidth)

	cells := make([][][]uint8, len(series))
	for si, s := range series {
		cells[si] = makeCells(height, width)
		style := lineStyles[si%len(lineStyles)]
		prevX, prevY := -1, -1
		for x, v := range resampleSeries(s.Values, width*2) {
			if math.IsNaN(v) {
				prevX, prevY = -1, -1
				continue
			}
			y := valueToRow(v, minVal, maxVal, height*4)
			plot := func(dx, dy int) {
				if style.shouldPlot(dx) {
					setBrailleDot(cells[si], dx, dy)
				}
			}
			if prevX >= 0 {
				drawLine(prevX, prevY, x, y, plot)
			} else {
				plot(x, y)
			}
			prevX, prevY = x, y
		}
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(runewidth.FillLeft(axis[y], axisWidth))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			mask, idx := composeCell(cells, x, y)
			ch := rune(0x2800 + int(mask))
			if opts.Color && idx >= 0 {
				row.WriteString(colorPalette[idx%len(colorPalette)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
			} else {
				row.WriteRune(ch)
			}
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, renderLegend(series, opts.Color))
	return err
}

// PlotWidthFor returns the plot width that fits totalWidth next to an axis
// of axisWidth cells.
func PlotWidthFor(totalWidth, axisWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisWidth-runewidth.StringWidth(axisSeparator), minPlotWidth)
}

// UseColor reports whether f is a terminal and NO_COLOR is unset.
func UseColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		for _, v := range s.Values {
			if !math.IsNaN(v) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func sharedRange(series []Series) (float64, float64) {
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	return minVal, maxVal
}

// makeAxisLabels labels the top, middle and bottom rows.
func makeAxisLabels(height int, minVal, maxVal float64, label func(float64) string) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = label(maxVal)
	if height > 2 {
		labels[height/2] = label((minVal + maxVal) / 2)
	}
	if height > 1 {
		labels[height-1] = label(minVal)
	}
	return labels
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := range cells {
		cells[y] = make([]uint8, width)
	}
	return cells
}

func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	idx := -1
	for i, cells := range seriesCells {
		if cells[y][x] == 0 {
			continue
		}
		if idx == -1 {
			idx = i
		}
		mask |= cells[y][x]
	}
	return mask, idx
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	return x%ls.period < ls.on
}

// resampleSeries maps values onto width columns by bucket mean. A bucket
// holding only gaps stays a gap.
func resampleSeries(values []float64, width int) []float64 {
	out := make([]float64, width)
	if len(values) == 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		if end <= start {
			end = start + 1
		}
		var sum float64
		var n int
		for _, v := range values[start:min(end, len(values))] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			out[i] = math.NaN()
		} else {
			out[i] = sum / float64(n)
		}
	}
	return out
}

func valueToRow(v, minVal, maxVal float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	pos := (v - minVal) / (maxVal - minVal)
	row := int(math.Round((1 - pos) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

func renderLegend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := fmt.Sprintf("%c %s (%s)", rune(0x2801), s.Name, lineStyles[i%len(lineStyles)].name)
		if useColor {
			label = colorPalette[i%len(colorPalette)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// drawLine plots the Bresenham line between two dot positions.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// setBrailleDot sets dot (x, y) where each cell is 2 dots wide and 4 high.
func setBrailleDot(cells [][]uint8, x, y int) {
	cy, cx := y/4, x/2
	if y < 0 || x < 0 || cy >= len(cells) || cx >= len(cells[cy]) {
		return
	}
	cells[cy][cx] |= brailleDotMasks[x%2][y%4]
}

var brailleDotMasks = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}
