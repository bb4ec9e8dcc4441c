package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Reserved parameter names and values shared by the table markup and the
// controller. Caller-defined filters must not reuse them.
const (
	DefaultSortKey     = "st_sort"
	DefaultPageKey     = "st_page"
	DefaultPageSizeKey = "st_page_size"
	DefaultSearchKey   = "st_search"

	// ShowAll is the page-size value meaning "no limit".
	ShowAll = "show_all"

	DefaultInitialPageSize = 25
)

// DefaultPageSizes are the page sizes offered by the page size selector.
var DefaultPageSizes = []int{10, 50, 200}

// Keys names the reserved query parameters.
type Keys struct {
	Sort     string `mapstructure:"sort"`
	Page     string `mapstructure:"page"`
	PageSize string `mapstructure:"page_size"`
	Search   string `mapstructure:"search"`
}

// DefaultKeys returns the st_* parameter names.
func DefaultKeys() Keys {
	return Keys{
		Sort:     DefaultSortKey,
		Page:     DefaultPageKey,
		PageSize: DefaultPageSizeKey,
		Search:   DefaultSearchKey,
	}
}

// Reserved reports whether name is one of the reserved keys.
func (k Keys) Reserved(name string) bool {
	return name == k.Sort || name == k.Page || name == k.PageSize || name == k.Search
}

// Settings is the table state a request carries in its reserved parameters.
type Settings struct {
	Sort   string
	Search string
	// PageSize is 0 when every record is shown.
	PageSize int
	Page     int
}

// ShowAll reports whether the page size is unlimited.
func (s Settings) ShowAll() bool { return s.PageSize == 0 }

// ParseSettings reads the reserved parameters from values. A missing page
// size falls back to initialPageSize; the show-all sentinel yields page size
// 0 and pins the page to 1. Pages below 1 or without digits become 1.
func ParseSettings(values url.Values, keys Keys, initialPageSize int) Settings {
	s := Settings{
		Sort:   values.Get(keys.Sort),
		Search: values.Get(keys.Search),
		Page:   1,
	}

	raw := values.Get(keys.PageSize)
	switch {
	case raw == ShowAll:
		return s
	case raw == "":
		s.PageSize = initialPageSize
	default:
		s.PageSize = leadingInt(raw)
		if s.PageSize <= 0 {
			s.PageSize = initialPageSize
		}
	}

	if page := values.Get(keys.Page); strings.ContainsAny(page, "0123456789") {
		if n := leadingInt(page); n > 1 {
			s.Page = n
		}
	}
	return s
}

// leadingInt parses the leading digits of s, ignoring surrounding space.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Sort directions, in cycling order.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortDirection splits a sort descriptor such as "name desc" into its
// attribute and direction, both lower-cased.
func SortDirection(descriptor string) (attribute, direction string) {
	fields := strings.Fields(strings.ToLower(descriptor))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

// NextSort returns the descriptor a sortable header for attribute links to:
// ascending first, then alternating while the same attribute stays sorted.
func NextSort(current, attribute string) string {
	attr, dir := SortDirection(current)
	if attr == strings.ToLower(attribute) && dir == SortAsc {
		return attribute + " " + SortDesc
	}
	return attribute + " " + SortAsc
}

// PageSizeChoices lists the page sizes to offer for total records. The
// current size is merged into sizes; when the largest one already covers
// total (or nothing is paginated) sizes above total are dropped and the
// show-all choice is appended.
func PageSizeChoices(sizes []int, current, total int) []string {
	all := append([]int(nil), sizes...)
	if current > 0 && !containsInt(all, current) {
		all = append(all, current)
	}
	sort.Ints(all)

	showAll := current == 0 || (len(all) > 0 && all[len(all)-1] >= total)
	out := make([]string, 0, len(all)+1)
	for _, size := range all {
		if showAll && size > total {
			continue
		}
		out = append(out, strconv.Itoa(size))
	}
	if showAll {
		out = append(out, ShowAll)
	}
	return out
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
