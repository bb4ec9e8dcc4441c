// Package export turns a rendered smart table into rows and writes them out
// as CSV, XLSX or a terminal table.
package export

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoTable is returned when the selection holds no table.
var ErrNoTable = errors.New("export: no table found")

// Cell is one table cell.
type Cell struct {
	Text string
	// Href is the first link of the cell, resolved against the page URL.
	Href string
}

// Table is the extracted content of a table.
type Table struct {
	Headers []string
	Rows    [][]Cell
}

// Texts returns the text of every cell of row i.
func (t Table) Texts(i int) []string {
	out := make([]string, len(t.Rows[i]))
	for j, c := range t.Rows[i] {
		out[j] = c.Text
	}
	return out
}

var (
	spaceRe = regexp.MustCompile(`\s+`)
	arrowRe = regexp.MustCompile(`\s*[▲▼]\s*$`)
)

// Extract reads the first table in sel (sel itself when it is a table).
// Headers come from thead th, rows from the cells of tbody tr.
func Extract(sel *goquery.Selection, base *url.URL) (Table, error) {
	table := sel.Filter("table").First()
	if table.Length() == 0 {
		table = sel.Find("table").First()
	}
	if table.Length() == 0 {
		return Table{}, ErrNoTable
	}

	var t Table
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		t.Headers = append(t.Headers, arrowRe.ReplaceAllString(textCondense(th.Text()), ""))
	})
	table.Find("tbody > tr").Each(func(_ int, tr *goquery.Selection) {
		var row []Cell
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, extractCell(td, base))
		})
		t.Rows = append(t.Rows, row)
	})
	return t, nil
}

func extractCell(td *goquery.Selection, base *url.URL) Cell {
	c := Cell{Text: textCondense(td.Text())}
	if a := td.Find("a[href]").First(); a.Length() != 0 {
		c.Href = resolve(base, a.AttrOr("href", ""))
	}
	return c
}

func textCondense(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(ru).String()
}
