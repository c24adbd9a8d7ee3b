package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// NullText is shown in place of null cells.
const NullText = "NULL"

// Grid is a rectangular block of text cells with a header row.
type Grid struct {
	Headers []string
	Rows    [][]string
}

// Table writes g as a box-drawn table in text mode and as a pipe table in
// markdown mode, followed by a row count.
func (r *Renderer) Table(g Grid) {
	if r.EffectiveMode() == ModeMarkdown {
		writeMarkdownTable(r.out, g)
	} else {
		writePrettyTable(r.out, g)
	}
	r.Printf("(%d rows)\n", len(g.Rows))
}

func writePrettyTable(w io.Writer, g Grid) {
	if len(g.Headers) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(g.Headers))
	for i, h := range g.Headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, cells := range g.Rows {
		row := make(table.Row, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		t.AppendRow(row)
	}
	t.Render()
}

func writeMarkdownTable(w io.Writer, g Grid) {
	if len(g.Headers) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(escapeCells(g.Headers), " | "))
	seps := make([]string, len(g.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(seps, " | "))

	for _, cells := range g.Rows {
		_, _ = fmt.Fprintf(w, "| %s |\n", strings.Join(escapeCells(cells), " | "))
	}
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
