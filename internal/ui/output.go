package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat accepts table, json, yaml or yml in any case.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Output handles formatted output
type Output struct {
	format    OutputFormat
	writer    io.Writer
	errWriter io.Writer
	noColor   bool
	quiet     bool
}

// NewOutput creates a new Output instance
func NewOutput(format OutputFormat, noColor, quiet bool) *Output {
	return &Output{
		format:    format,
		writer:    os.Stdout,
		errWriter: os.Stderr,
		noColor:   noColor,
		quiet:     quiet,
	}
}

// SetWriter sets the output writer
func (o *Output) SetWriter(w io.Writer) {
	o.writer = w
}

// SetErrWriter sets where errors go
func (o *Output) SetErrWriter(w io.Writer) {
	o.errWriter = w
}

func (o *Output) Format() OutputFormat {
	return o.format
}

// Structured reports whether results are printed as JSON or YAML, in which
// case status messages are suppressed.
func (o *Output) Structured() bool {
	return o.format == FormatJSON || o.format == FormatYAML
}

func (o *Output) silent() bool {
	return o.quiet || o.Structured()
}

func (o *Output) render(style lipgloss.Style, s string) string {
	if o.noColor {
		return s
	}
	return style.Render(s)
}

func (o *Output) status(w io.Writer, style lipgloss.Style, icon, msg string) {
	_, _ = fmt.Fprintln(w, o.render(style, icon)+" "+msg)
}

// Print prints a message
func (o *Output) Print(msg string) {
	if o.silent() {
		return
	}
	_, _ = fmt.Fprintln(o.writer, msg)
}

// Printf prints a formatted message
func (o *Output) Printf(format string, args ...interface{}) {
	o.Print(fmt.Sprintf(format, args...))
}

// Success prints a success message
func (o *Output) Success(msg string) {
	if o.silent() {
		return
	}
	o.status(o.writer, Success, IconSuccess, msg)
}

// Error prints an error message. Errors are never silenced.
func (o *Output) Error(msg string) {
	o.status(o.errWriter, Error, IconError, o.render(Error, msg))
}

// Warning prints a warning message
func (o *Output) Warning(msg string) {
	if o.silent() {
		return
	}
	o.status(o.writer, Warning, IconWarning, o.render(Warning, msg))
}

// Info prints an info message
func (o *Output) Info(msg string) {
	if o.silent() {
		return
	}
	o.status(o.writer, Info, IconInfo, msg)
}

// Title prints a title
func (o *Output) Title(msg string) {
	if o.silent() {
		return
	}
	if o.noColor {
		_, _ = fmt.Fprintf(o.writer, "\n%s\n%s\n", msg, strings.Repeat("=", len(msg)))
		return
	}
	_, _ = fmt.Fprintln(o.writer, Title.Render(msg))
}

// KeyValue prints a key-value pair
func (o *Output) KeyValue(key, value string) {
	if o.silent() {
		return
	}
	_, _ = fmt.Fprintf(o.writer, "  %s: %s\n", o.render(Muted, key), value)
}

// SQL prints a statement, highlighted unless colors are off.
func (o *Output) SQL(sql string) {
	if o.silent() {
		return
	}
	_, _ = fmt.Fprintln(o.writer, o.render(Code, sql))
}

// JSON outputs data as JSON
func (o *Output) JSON(data interface{}) error {
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// YAML outputs data as YAML
func (o *Output) YAML(data interface{}) error {
	enc := yaml.NewEncoder(o.writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}

// Data outputs data in the configured format. It reports false for the
// table format, where the caller renders its own view.
func (o *Output) Data(data interface{}) (bool, error) {
	switch o.format {
	case FormatJSON:
		return true, o.JSON(data)
	case FormatYAML:
		return true, o.YAML(data)
	default:
		return false, nil
	}
}

// IsInteractive returns true if the output is to a terminal
func (o *Output) IsInteractive() bool {
	if f, ok := o.writer.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// Table represents a simple table
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a new table
func NewTable(output *Output, headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		output:  output,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render renders the table
func (t *Table) Render() error {
	switch t.output.format {
	case FormatJSON:
		return t.output.JSON(t.records())
	case FormatYAML:
		return t.output.YAML(t.records())
	}

	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, col := range row {
			if i < len(widths) && len(col) > widths[i] {
				widths[i] = len(col)
			}
		}
	}

	headerCells := make([]string, len(t.headers))
	for i, h := range t.headers {
		if t.output.noColor {
			headerCells[i] = padRight(h, widths[i])
		} else {
			headerCells[i] = HeaderStyle.Width(widths[i]).Render(h)
		}
	}
	if _, err := fmt.Fprintln(t.output.writer, strings.TrimRight(strings.Join(headerCells, "  "), " ")); err != nil {
		return err
	}

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, col := range row {
			if i < len(widths) {
				cells[i] = padRight(col, widths[i])
			} else {
				cells[i] = col
			}
		}
		if _, err := fmt.Fprintln(t.output.writer, strings.TrimRight(strings.Join(cells, "  "), " ")); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) records() []map[string]string {
	data := make([]map[string]string, len(t.rows))
	for i, row := range t.rows {
		m := make(map[string]string)
		for j, col := range row {
			if j < len(t.headers) {
				m[t.headers[j]] = col
			}
		}
		data[i] = m
	}
	return data
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
