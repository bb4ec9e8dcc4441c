package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// WriteCSV writes the headers and the cell texts of t.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if len(t.Headers) > 0 {
		if err := cw.Write(t.Headers); err != nil {
			return err
		}
	}
	for i := range t.Rows {
		if err := cw.Write(t.Texts(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX saves t as a single-sheet workbook at path. Integer cells are
// stored as numbers.
func WriteXLSX(path string, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	next := 1
	if len(t.Headers) > 0 {
		header := make([]interface{}, len(t.Headers))
		for i, h := range t.Headers {
			header[i] = h
		}
		if err := sw.SetRow("A1", header); err != nil {
			return err
		}
		next++
	}
	for i, r := range t.Rows {
		row := make([]interface{}, len(r))
		for j, c := range r {
			if n, err := strconv.Atoi(c.Text); err == nil {
				row[j] = n
			} else {
				row[j] = c.Text
			}
		}
		cellAddr, _ := excelize.CoordinatesToCellName(1, next+i)
		if err := sw.SetRow(cellAddr, row); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// WriteFile writes t to path, picking the format from the extension.
func WriteFile(path string, t Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return createWith(path, t, WriteCSV)
	case ".xlsx":
		return WriteXLSX(path, t)
	case ".yaml", ".yml":
		return createWith(path, t, WriteYAML)
	default:
		return fmt.Errorf("out must end with .csv, .xlsx or .yaml: %s", path)
	}
}

func createWith(path string, t Table, write func(io.Writer, Table) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteYAML writes one mapping per row, keyed by header in column order.
// Linked cells add a <header>_href entry.
func WriteYAML(w io.Writer, t Table) error {
	str := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, r := range t.Rows {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for j, c := range r {
			key := columnName(t.Headers, j)
			m.Content = append(m.Content, str(key), str(c.Text))
			if c.Href != "" {
				m.Content = append(m.Content, str(key+"_href"), str(c.Href))
			}
		}
		seq.Content = append(seq.Content, m)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return err
	}
	return enc.Close()
}

func columnName(headers []string, i int) string {
	if i < len(headers) && headers[i] != "" {
		return headers[i]
	}
	return fmt.Sprintf("col%d", i+1)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#35d9b3")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#118b73"))
)

// Render formats t for a terminal.
func Render(t Table) string {
	rows := make([][]string, len(t.Rows))
	for i := range t.Rows {
		rows[i] = t.Texts(i)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(t.Headers...).
		Rows(rows...).
		String()
}
