package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background; outside a terminal it is plain.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}
	return r.Render
}

// Field is one row of a report.
type Field struct {
	Name  string
	Value any
}

// Report formats fields as a markdown table under a heading.
func Report(title string, fields ...Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("| Field | Value |\n| --- | --- |\n")
	for _, f := range fields {
		value := strings.ReplaceAll(fmt.Sprint(f.Value), "|", `\|`)
		fmt.Fprintf(&b, "| %s | %s |\n", f.Name, value)
	}
	return b.String()
}
