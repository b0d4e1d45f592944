package simulate

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/tempo/pkg/common/validation"
)

// Output formats accepted by Render.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// Render writes report to w in the given format.
func Render(w io.Writer, report *Report, format string) error {
	switch format {
	case FormatTable, "":
		_, err := io.WriteString(w, RenderTable(report)+"\n")
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return validation.ValidateOneOf(module, "format", format, FormatTable, FormatYAML)
	}
}

// RenderTable renders report as a table with one row per execution.
func RenderTable(report *Report) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title(report))
	t.AppendHeader(table.Row{"#", "At (ms)", "Arg", "Edge"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
	})

	for i, e := range report.Executions {
		t.AppendRow(table.Row{i + 1, e.At, e.Arg, e.Edge})
	}

	t.AppendFooter(table.Row{
		"",
		"",
		fmt.Sprintf("%d calls, %d executed", report.Calls, len(report.Executions)),
		fmt.Sprintf("%d suppressed", report.Suppressed),
	})
	return t.Render()
}

func title(report *Report) string {
	s := report.Control
	if report.Policy != "" {
		s += " (" + report.Policy + ")"
	}
	s += fmt.Sprintf(" %dms", report.Delay)
	if report.Name != "" {
		s = report.Name + ": " + s
	}
	return s
}
