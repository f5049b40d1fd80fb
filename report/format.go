package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

////////////////////////////////////////////////////////////////////////////////////////////////////
//
// Output formats.

type Format int

const (
	FormatFixed Format = iota // boxed tables, the default
	FormatCsv                 // one row per (partition, user), with header
	FormatJson                // the Report as a JSON object
	FormatYaml                // the Report as a YAML document
	FormatAwk                 // space-separated, no header, durations in seconds
)

var formatNames = [...]string{"fixed", "csv", "json", "yaml", "awk"}

func (f Format) String() string {
	if f < FormatFixed || f > FormatAwk {
		return fmt.Sprintf("format(%d)", int(f))
	}
	return formatNames[f]
}

func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if s == name {
			return Format(i), nil
		}
	}
	return FormatFixed, fmt.Errorf("Unknown format %q, expected one of %s", s, strings.Join(formatNames[:], ", "))
}

func (f *Format) Set(s string) error {
	x, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = x
	return nil
}

func (f *Format) Type() string {
	return "format"
}

type Options struct {
	Format Format

	// Highlight the partition headings in the fixed format
	Color bool
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Columns

type column struct {
	header string
	fmt    func(*Row) string
	raw    func(*Row) string // for awk and csv, if different from fmt
}

func intCol(f func(*Row) int64) func(*Row) string {
	return func(r *Row) string { return strconv.FormatInt(f(r), 10) }
}

func secondsCol(f func(*Row) float64) func(*Row) string {
	return func(r *Row) string { return strconv.FormatFloat(f(r), 'f', 0, 64) }
}

func durationCol(f func(*Row) float64) func(*Row) string {
	return func(r *Row) string { return FormatDuration(f(r)) }
}

var (
	// MT: Constant after initialization; immutable
	countColumns = []column{
		{header: "USER", fmt: func(r *Row) string { return r.User }},
		{header: "JOBS", fmt: intCol(func(r *Row) int64 { return r.Jobs })},
		{header: "NODES", fmt: intCol(func(r *Row) int64 { return r.Nodes })},
		{header: "CPUS", fmt: intCol(func(r *Row) int64 { return r.CPUs })},
		{header: "GPUS", fmt: intCol(func(r *Row) int64 { return r.GPUs })},
	}
	usageSeconds = func(r *Row) float64 { return r.UsageSeconds }
	cpuSeconds   = func(r *Row) float64 { return float64(r.CpuSeconds) }
	gpuSeconds   = func(r *Row) float64 { return r.GpuSeconds }
)

func columnsFor(kind Kind) []column {
	cols := append([]column{}, countColumns...)
	switch kind {
	case CpuTimeKind:
		cols = append(cols,
			column{header: "CPU_TIME", fmt: durationCol(cpuSeconds), raw: secondsCol(cpuSeconds)},
			column{header: "GPU_TIME", fmt: durationCol(gpuSeconds), raw: secondsCol(gpuSeconds)},
			column{header: "ELAPSED_TIME", fmt: durationCol(usageSeconds), raw: secondsCol(usageSeconds)},
		)
	default:
		cols = append(cols,
			column{header: "USAGE", fmt: durationCol(usageSeconds), raw: secondsCol(usageSeconds)},
		)
	}
	return cols
}

// Render writes the report in the selected format.
func Render(unbufOut io.Writer, rep *Report, opts Options) error {
	out := Buffered(unbufOut)
	var err error
	switch opts.Format {
	case FormatCsv:
		err = formatCsv(out, rep)
	case FormatJson:
		err = formatJson(out, rep)
	case FormatYaml:
		err = formatYaml(out, rep)
	case FormatAwk:
		formatAwk(out, rep)
	default:
		formatFixed(out, rep, opts.Color)
	}
	if err != nil {
		return err
	}
	return out.Flush()
}

// The header line and one boxed, right-aligned table per partition.  Widths are display widths so
// that wide characters in user names don't break the boxes.
func formatFixed(out *bufio.Writer, rep *Report, useColor bool) {
	heading := color.New(color.Bold)
	if useColor {
		heading.EnableColor()
	} else {
		heading.DisableColor()
	}
	cols := columnsFor(rep.Kind)
	fmt.Fprintf(out, "\nUsage statistics from %s to %s\n", rep.From, rep.To)
	for i := range rep.Tables {
		t := &rep.Tables[i]
		cells := make([][]string, len(t.Rows))
		widths := make([]int, len(cols))
		for c, col := range cols {
			widths[c] = runewidth.StringWidth(col.header)
		}
		for r := range t.Rows {
			cells[r] = make([]string, len(cols))
			for c, col := range cols {
				cells[r][c] = col.fmt(&t.Rows[r])
				widths[c] = max(widths[c], runewidth.StringWidth(cells[r][c]))
			}
		}
		rule := boxRule(widths)
		fmt.Fprintf(out, "\n%s\n", heading.Sprintf("<%s>", t.Partition))
		fmt.Fprintln(out, rule)
		headers := make([]string, len(cols))
		for c, col := range cols {
			headers[c] = col.header
		}
		fmt.Fprintln(out, boxLine(widths, headers))
		fmt.Fprintln(out, rule)
		for _, row := range cells {
			fmt.Fprintln(out, boxLine(widths, row))
		}
		fmt.Fprintln(out, rule)
	}
}

func boxRule(widths []int) string {
	var s strings.Builder
	s.WriteByte('+')
	for _, w := range widths {
		s.WriteString(strings.Repeat("-", w+2))
		s.WriteByte('+')
	}
	return s.String()
}

func boxLine(widths []int, vals []string) string {
	var s strings.Builder
	s.WriteByte('|')
	for i, w := range widths {
		s.WriteByte(' ')
		s.WriteString(runewidth.FillLeft(vals[i], w))
		s.WriteString(" |")
	}
	return s.String()
}

func formatCsv(out io.Writer, rep *Report) error {
	w := csv.NewWriter(out)
	cols := columnsFor(rep.Kind)
	fields := make([]string, len(cols)+1)
	fields[0] = "partition"
	for c, col := range cols {
		fields[c+1] = strings.ToLower(col.header)
	}
	w.Write(fields)
	for _, t := range rep.Tables {
		for r := range t.Rows {
			fields[0] = t.Partition
			for c, col := range cols {
				fields[c+1] = rawValue(col, &t.Rows[r])
			}
			w.Write(fields)
		}
	}
	w.Flush()
	return w.Error()
}

func formatJson(out io.Writer, rep *Report) error {
	enc := json.NewEncoder(out)
	return enc.Encode(rep)
}

func formatYaml(out io.Writer, rep *Report) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return err
	}
	return enc.Close()
}

// awk output: fields are space-separated and spaces are not allowed within fields, they are
// replaced by `_`.
func formatAwk(out io.Writer, rep *Report) {
	cols := columnsFor(rep.Kind)
	var line strings.Builder
	for _, t := range rep.Tables {
		for r := range t.Rows {
			line.Reset()
			line.WriteString(strings.ReplaceAll(t.Partition, " ", "_"))
			for _, col := range cols {
				line.WriteByte(' ')
				line.WriteString(strings.ReplaceAll(rawValue(col, &t.Rows[r]), " ", "_"))
			}
			fmt.Fprintln(out, line.String())
		}
	}
}

func rawValue(col column, r *Row) string {
	if col.raw != nil {
		return col.raw(r)
	}
	return col.fmt(r)
}

func Buffered(unbufOut io.Writer) *bufio.Writer {
	if b, ok := unbufOut.(*bufio.Writer); ok {
		return b
	}
	return bufio.NewWriter(unbufOut)
}
