package smarttable

import (
	"errors"
	"fmt"

	"github.com/andybalholm/cascadia"

	"github.com/poku-e/smarttable/browser"
	"github.com/poku-e/smarttable/dom"
	"github.com/poku-e/smarttable/query"
)

// Default markers. The table markup must carry them for the controller to
// find its controls.
const (
	DefaultSearchSelector     = ".smart_table_search"
	DefaultFiltersSelector    = ".smart_table_extra_filters"
	DefaultRegionSelector     = "[data-smart-table-remote]"
	DefaultRemoteLinkSelector = "a[data-smart-table-remote-link]"
	DefaultUpdateEvent        = "smart_table:ajax_update"
	DefaultFirstPage          = "1"
)

// Config holds the parameter names and DOM markers the controller works
// with.
type Config struct {
	Keys      query.Keys `mapstructure:"keys"`
	FirstPage string     `mapstructure:"first_page"`

	// PageSizes and InitialPageSize describe pagination for the backend
	// collaborator rendering the table; the controller only forwards them.
	PageSizes       []int `mapstructure:"page_sizes"`
	InitialPageSize int   `mapstructure:"initial_page_size"`

	SearchSelector     string `mapstructure:"search_selector"`
	FiltersSelector    string `mapstructure:"filters_selector"`
	RegionSelector     string `mapstructure:"region_selector"`
	RemoteLinkSelector string `mapstructure:"remote_link_selector"`

	// UpdateEvent is fired on the document after each partial replacement.
	UpdateEvent string `mapstructure:"update_event"`
	// ReadyEvents are the document events that mean "the page is ready".
	ReadyEvents []string `mapstructure:"ready_events"`
}

// DefaultConfig returns the st_* parameters and smart_table markers.
func DefaultConfig() Config {
	return Config{
		Keys:               query.DefaultKeys(),
		FirstPage:          DefaultFirstPage,
		PageSizes:          append([]int(nil), query.DefaultPageSizes...),
		InitialPageSize:    query.DefaultInitialPageSize,
		SearchSelector:     DefaultSearchSelector,
		FiltersSelector:    DefaultFiltersSelector,
		RegionSelector:     DefaultRegionSelector,
		RemoteLinkSelector: DefaultRemoteLinkSelector,
		UpdateEvent:        DefaultUpdateEvent,
		ReadyEvents: []string{
			dom.EventDOMContentLoaded,
			browser.EventTurbolinksLoad,
			browser.EventPageLoad,
		},
	}
}

// Validate checks that every key is set and every selector compiles.
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"keys.sort":       c.Keys.Sort,
		"keys.page":       c.Keys.Page,
		"keys.page_size":  c.Keys.PageSize,
		"keys.search":     c.Keys.Search,
		"first_page":      c.FirstPage,
		"update_event":    c.UpdateEvent,
		"region_selector": c.RegionSelector,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	for name, sel := range map[string]string{
		"search_selector":      c.SearchSelector,
		"filters_selector":     c.FiltersSelector,
		"region_selector":      c.RegionSelector,
		"remote_link_selector": c.RemoteLinkSelector,
	} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.Compile(sel); err != nil {
			errs = append(errs, fmt.Errorf("%s %q: %w", name, sel, err))
		}
	}
	if len(c.ReadyEvents) == 0 {
		errs = append(errs, errors.New("ready_events must not be empty"))
	}
	if c.InitialPageSize < 0 {
		errs = append(errs, fmt.Errorf("initial_page_size %d is negative", c.InitialPageSize))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
