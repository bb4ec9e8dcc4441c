package demo

import (
	"net/url"
	"sort"
	"strings"

	"github.com/poku-e/smarttable/query"
)

// Filter parameter names rendered in the extra filters container.
const (
	FilterIngredient = "ingredient"
	FilterSingle     = "single"
	FilterOutput     = "output"
	FilterQty        = "qty"
)

// Qty filter values.
const (
	QtyOne   = "1"
	QtyMulti = "multi"
)

// Sortable columns.
const (
	SortOutput = "output"
	SortQty    = "qty"
	SortInputs = "inputs"
)

// Filter narrows the catalog. Zero values match everything.
type Filter struct {
	Search     string
	Ingredient string
	Output     string
	Single     bool
	Qty        string
}

// FilterFromValues reads the filter parameters and the search key from a
// request query.
func FilterFromValues(values url.Values, keys query.Keys) Filter {
	return Filter{
		Search:     strings.TrimSpace(values.Get(keys.Search)),
		Ingredient: values.Get(FilterIngredient),
		Output:     strings.TrimSpace(values.Get(FilterOutput)),
		Single:     values.Get(FilterSingle) != "",
		Qty:        values.Get(FilterQty),
	}
}

// Result is one page of recipes.
type Result struct {
	Recipes []Recipe
	Total   int
	Offset  int
}

// Query filters, sorts and paginates the catalog.
func (c *Catalog) Query(f Filter, s query.Settings) Result {
	c.mu.RLock()
	var matched []Recipe
	search := c.searcher(f.Search)
	for _, rec := range c.recipes {
		if search(rec) && f.match(rec) {
			matched = append(matched, rec)
		}
	}
	c.mu.RUnlock()

	sortRecipes(matched, s.Sort)

	res := Result{Total: len(matched)}
	if s.ShowAll() {
		res.Recipes = matched
		return res
	}
	res.Offset = (s.Page - 1) * s.PageSize
	if res.Offset >= len(matched) {
		return res
	}
	end := min(res.Offset+s.PageSize, len(matched))
	res.Recipes = matched[res.Offset:end]
	return res
}

// searcher matches free text against output and input names, falling back
// to the closest known ingredient. Must be called with c.mu held.
func (c *Catalog) searcher(raw string) func(Recipe) bool {
	q := fold(raw)
	if q == "" {
		return func(Recipe) bool { return true }
	}
	fuzzy, hasFuzzy := c.matchIngredient(raw)
	return func(rec Recipe) bool {
		if strings.Contains(fold(rec.Output), q) {
			return true
		}
		for _, ing := range rec.Inputs {
			if strings.Contains(fold(ing), q) || (hasFuzzy && ing == fuzzy) {
				return true
			}
		}
		return false
	}
}

func (f Filter) match(rec Recipe) bool {
	if f.Ingredient != "" && !containsString(rec.Inputs, f.Ingredient) {
		return false
	}
	if f.Output != "" && !strings.Contains(fold(rec.Output), fold(f.Output)) {
		return false
	}
	if f.Single && len(rec.Inputs) != 1 {
		return false
	}
	switch f.Qty {
	case QtyOne:
		return rec.Qty == 1
	case QtyMulti:
		return rec.Qty > 1
	}
	return true
}

func sortRecipes(recipes []Recipe, descriptor string) {
	attr, dir := query.SortDirection(descriptor)
	var less func(a, b Recipe) bool
	switch attr {
	case SortOutput:
		less = func(a, b Recipe) bool { return fold(a.Output) < fold(b.Output) }
	case SortQty:
		less = func(a, b Recipe) bool { return a.Qty < b.Qty }
	case SortInputs:
		less = func(a, b Recipe) bool { return len(a.Inputs) < len(b.Inputs) }
	default:
		return
	}
	if dir == query.SortDesc {
		asc := less
		less = func(a, b Recipe) bool { return asc(b, a) }
	}
	sort.SliceStable(recipes, func(i, j int) bool { return less(recipes[i], recipes[j]) })
}

func containsString(xs []string, s string) bool {
	for _, v := range xs {
		if v == s {
			return true
		}
	}
	return false
}
