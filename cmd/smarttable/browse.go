package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"

	smarttable "github.com/poku-e/smarttable"
	"github.com/poku-e/smarttable/browser"
	"github.com/poku-e/smarttable/dom"
	"github.com/poku-e/smarttable/internal/export"
)

type browseOpts struct {
	search  string
	set     []string
	check   []string
	uncheck []string
	click   string
	out     string
}

func newBrowseCmd(a *app) *cobra.Command {
	var o browseOpts
	cmd := &cobra.Command{
		Use:   "browse <url>",
		Short: "Load a smart table, drive its controls and print the result",
		Long: `Load a page, wire its smart table and apply the given actions in order:
--search, --set, --check, --uncheck, then --click. Each action waits for
the update it triggers. The final URL and the table are printed, and
--out writes the table to a .csv or .xlsx file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.browse(ctx, cmd, args[0], o)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.search, "search", "", "text typed into the search field")
	flags.StringArrayVar(&o.set, "set", nil, "name=value for a text field or select (repeatable)")
	flags.StringArrayVar(&o.check, "check", nil, "name[=value] of a checkbox or radio to check (repeatable)")
	flags.StringArrayVar(&o.uncheck, "uncheck", nil, "name[=value] of a checkbox to uncheck (repeatable)")
	flags.StringVar(&o.click, "click", "", "CSS selector of an element to click")
	flags.StringVar(&o.out, "out", "", "write the table to a .csv or .xlsx file")
	flags.Duration("timeout", 30*time.Second, "HTTP timeout per request")
	_ = a.v.BindPFlag("browse.timeout", flags.Lookup("timeout"))
	return cmd
}

func (a *app) browse(ctx context.Context, cmd *cobra.Command, target string, o browseOpts) error {
	fetcher := browser.NewHTTPFetcher(browser.NewHTTPClient(a.v.GetDuration("browse.timeout")))
	b := browser.New(browser.WithFetcher(fetcher), browser.WithLogger(a.logger))
	c, err := smarttable.New(b, b, a.cfg, smarttable.WithLogger(a.logger), smarttable.WithContext(ctx))
	if err != nil {
		return err
	}
	c.Init()

	if err := b.Load(ctx, target); err != nil {
		return err
	}

	var steps []func() error
	if o.search != "" {
		steps = append(steps, func() error {
			if a.cfg.SearchSelector == "" {
				return errors.New("search field is disabled by config")
			}
			return b.Type(a.cfg.SearchSelector, o.search)
		})
	}
	for _, pair := range o.set {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("--set %q: want name=value", pair)
		}
		steps = append(steps, func() error {
			sel := a.controlSelector(name, "", false)
			n := b.Page().First(sel)
			if n != nil && b.Page().ControlType(n) == dom.TypeSelectOne {
				return b.Select(sel, value)
			}
			return b.Type(sel, value)
		})
	}
	for _, pair := range o.check {
		name, value, ok := strings.Cut(pair, "=")
		steps = append(steps, func() error { return b.Check(a.controlSelector(name, value, ok), true) })
	}
	for _, pair := range o.uncheck {
		name, value, ok := strings.Cut(pair, "=")
		steps = append(steps, func() error { return b.Check(a.controlSelector(name, value, ok), false) })
	}
	if o.click != "" {
		steps = append(steps, func() error { return b.Click(ctx, o.click) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
		c.Wait()
	}

	out := cmd.OutOrStdout()
	loc := b.Page().Location()
	fmt.Fprintln(out, loc.String())

	var (
		tbl        export.Table
		extractErr error
	)
	if err := b.Page().View(func(doc *goquery.Document) {
		tbl, extractErr = export.Extract(doc.Selection, loc)
	}); err != nil {
		return err
	}
	if errors.Is(extractErr, export.ErrNoTable) {
		fmt.Fprintln(out, "no table on page")
		return nil
	}
	if extractErr != nil {
		return extractErr
	}
	fmt.Fprintln(out, export.Render(tbl))

	if o.out != "" {
		if err := export.WriteFile(o.out, tbl); err != nil {
			return err
		}
		fmt.Fprintf(out, "OK: %d rows -> %s\n", len(tbl.Rows), o.out)
	}
	return nil
}

// controlSelector finds a named control inside the extra filters container.
func (a *app) controlSelector(name, value string, withValue bool) string {
	sel := fmt.Sprintf("[name=%q]", name)
	if withValue {
		sel += fmt.Sprintf("[value=%q]", value)
	}
	if a.cfg.FiltersSelector != "" {
		sel = a.cfg.FiltersSelector + " " + sel
	}
	return sel
}
