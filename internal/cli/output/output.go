package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/itchyny/gojq"
	"github.com/muesli/termenv"
)

// Output handles CLI output formatting.
type Output struct {
	w        io.Writer
	errW     io.Writer
	jsonMode bool
	noColor  bool
	profile  termenv.Profile
	jq       *gojq.Code
}

// New creates a new Output instance writing to stdout and stderr.
func New(jsonMode bool) *Output {
	noColor := os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
	return &Output{
		w:        os.Stdout,
		errW:     os.Stderr,
		jsonMode: jsonMode,
		noColor:  noColor,
		profile:  termenv.ColorProfile(),
	}
}

// NewWriter creates a colorless Output writing to w, for tests.
func NewWriter(w io.Writer, jsonMode bool) *Output {
	return &Output{w: w, errW: w, jsonMode: jsonMode, noColor: true, profile: termenv.Ascii}
}

// SetFilter compiles a jq expression applied to every JSON document. An
// empty expression removes the filter.
func (o *Output) SetFilter(expr string) error {
	if expr == "" {
		o.jq = nil
		return nil
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid jq filter: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("invalid jq filter: %w", err)
	}
	o.jq = code
	return nil
}

// JSONMode reports whether output is JSON.
func (o *Output) JSONMode() bool {
	return o.jsonMode || o.jq != nil
}

func (o *Output) color(hex, text string) string {
	if o.noColor {
		return text
	}
	return termenv.String(text).Foreground(o.profile.Color(hex)).String()
}

func (o *Output) bold(text string) string {
	if o.noColor {
		return text
	}
	return termenv.String(text).Bold().String()
}

// Success prints a success message.
func (o *Output) Success(format string, args ...any) {
	if o.JSONMode() {
		return
	}
	fmt.Fprintf(o.w, o.color("#50FA7B", "✓ ")+format+"\n", args...)
}

// Error prints an error message.
func (o *Output) Error(format string, args ...any) {
	if o.JSONMode() {
		return
	}
	fmt.Fprintf(o.errW, o.color("#FF5555", "✗ ")+format+"\n", args...)
}

// Warn prints a warning message.
func (o *Output) Warn(format string, args ...any) {
	if o.JSONMode() {
		return
	}
	fmt.Fprintf(o.w, o.color("#F1FA8C", "! ")+format+"\n", args...)
}

// Info prints an info message.
func (o *Output) Info(format string, args ...any) {
	if o.JSONMode() {
		return
	}
	fmt.Fprintf(o.w, o.color("#8BE9FD", "→ ")+format+"\n", args...)
}

// Header prints a header.
func (o *Output) Header(text string) {
	if o.JSONMode() {
		return
	}
	fmt.Fprintln(o.w, o.bold(text))
}

// KeyValue prints a key-value pair.
func (o *Output) KeyValue(key, value string) {
	if o.JSONMode() {
		return
	}
	fmt.Fprintf(o.w, "  %s: %s\n", o.color("#6272A4", key), value)
}

// Divider prints a divider line.
func (o *Output) Divider() {
	if o.JSONMode() {
		return
	}
	fmt.Fprintln(o.w, o.color("#6272A4", "─────────────────────────────────────────"))
}

// Table prints rows as aligned columns under a bold header. Cells longer
// than maxCell runes are cut with an ellipsis.
func (o *Output) Table(headers []string, rows [][]string) {
	if o.JSONMode() {
		return
	}
	const maxCell = 48

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], min(utf8.RuneCountInString(cell), maxCell))
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = pad(cell, widths[i])
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	fmt.Fprintln(o.w, o.bold(line(headers)))
	for _, row := range rows {
		fmt.Fprintln(o.w, line(row))
	}
}

// pad pads or truncates a string to exactly the given width.
func pad(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		if width > 3 {
			return string(runes[:width-3]) + "..."
		}
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-n)
}

// JSON prints data as indented JSON, through the jq filter when one is set.
func (o *Output) JSON(data any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	if o.jq == nil {
		return enc.Encode(data)
	}

	// gojq works on plain maps and slices
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}

	iter := o.jq.Run(v)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				return nil
			}
			return fmt.Errorf("jq: %w", err)
		}
		if s, isString := result.(string); isString {
			fmt.Fprintln(o.w, s)
			continue
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
}
