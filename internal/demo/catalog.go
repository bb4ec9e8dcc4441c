// Package demo is a server-rendered smart table over a recipe catalog. It
// plays the backend role the controller talks to: it reads the reserved
// st_* parameters, sorts, filters and paginates, and renders the markers
// the controller looks for.
package demo

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
)

// Recipe is one row of the table.
type Recipe struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
	Qty    int      `json:"qty"`
}

// Catalog holds the recipes loaded from a CSV file. It is safe for
// concurrent use and can be reloaded in place.
type Catalog struct {
	mu          sync.RWMutex
	path        string
	recipes     []Recipe
	ingredients []string
	// recipe indexes per ingredient, ascending
	usedBy   map[string][]int
	byFolded map[string]string
}

// LoadCatalog reads the recipe CSV at path.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewCatalog builds a catalog from CSV data held in memory.
func NewCatalog(r io.Reader) (*Catalog, error) {
	c := &Catalog{}
	recipes, err := readRecipes(r)
	if err != nil {
		return nil, err
	}
	c.install(recipes)
	return c, nil
}

// Path returns the file the catalog was loaded from.
func (c *Catalog) Path() string { return c.path }

// Reload re-reads the catalog file. On error the previous content is kept.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return fmt.Errorf("catalog has no backing file")
	}
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	recipes, err := readRecipes(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.path, err)
	}
	c.install(recipes)
	return nil
}

func (c *Catalog) install(recipes []Recipe) {
	byFolded := make(map[string]string)
	usedBy := make(map[string][]int)
	var ingredients []string
	for i, rec := range recipes {
		for _, ing := range rec.Inputs {
			list, ok := usedBy[ing]
			if !ok {
				ingredients = append(ingredients, ing)
				byFolded[fold(ing)] = ing
			}
			if len(list) == 0 || list[len(list)-1] != i {
				usedBy[ing] = append(list, i)
			}
		}
	}
	sort.Strings(ingredients)

	c.mu.Lock()
	c.recipes = recipes
	c.ingredients = ingredients
	c.usedBy = usedBy
	c.byFolded = byFolded
	c.mu.Unlock()
}

// Len returns the number of recipes.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.recipes)
}

// Ingredients returns every distinct ingredient, sorted.
func (c *Catalog) Ingredients() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.ingredients...)
}

var requiredColumns = []string{
	"input1_name", "input2_name", "input3_name",
	"output_name", "output_qty",
}

func readRecipes(r io.Reader) ([]Recipe, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no rows")
	}

	headers := map[string]int{}
	for i, h := range records[0] {
		headers[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := headers[name]; !ok {
			return nil, fmt.Errorf("missing required column: %s", name)
		}
	}
	cell := func(row []string, name string) string {
		if idx := headers[name]; idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var recipes []Recipe
	for _, row := range records[1:] {
		var inputs []string
		for _, name := range []string{"input1_name", "input2_name", "input3_name"} {
			if v := cell(row, name); v != "" {
				inputs = append(inputs, v)
			}
		}
		output := cell(row, "output_name")
		if output == "" || len(inputs) == 0 {
			continue
		}
		qty := 1
		if q, err := strconv.Atoi(cell(row, "output_qty")); err == nil && q > 0 {
			qty = q
		}
		recipes = append(recipes, Recipe{Inputs: inputs, Output: output, Qty: qty})
	}
	return recipes, nil
}

// fold reduces an ingredient or recipe name to the form names are compared
// in: lower case, no combining marks or symbols, single spaces.
func fold(name string) string {
	return strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.Mn, r):
			return -1
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsPunct(r):
			return unicode.ToLower(r)
		}
		return -1
	}, name)), " ")
}

// editDistance counts the single-rune edits turning a into b, keeping one
// row of the distance table.
func editDistance(a, b string) int {
	src, dst := []rune(a), []rune(b)
	row := make([]int, len(dst)+1)
	for j := range row {
		row[j] = j
	}
	for i, sr := range src {
		diag := row[0]
		row[0] = i + 1
		for j, dr := range dst {
			subst := diag
			if sr != dr {
				subst++
			}
			diag, row[j+1] = row[j+1], min(row[j+1]+1, row[j]+1, subst)
		}
	}
	return row[len(dst)]
}

// maxIngredientScore is the worst score a fuzzy ingredient match may have.
const maxIngredientScore = 2.5

// matchIngredient maps free text to the closest known ingredient. A name
// that folds to a known ingredient wins outright; otherwise the ingredient
// with the lowest edit distance is taken, at half cost when one name
// contains the other. Must be called with c.mu held.
func (c *Catalog) matchIngredient(raw string) (string, bool) {
	want := fold(raw)
	if want == "" {
		return "", false
	}
	if ing, ok := c.byFolded[want]; ok {
		return ing, true
	}
	best, bestScore := "", math.MaxFloat64
	for _, ing := range c.ingredients {
		name := fold(ing)
		score := float64(editDistance(want, name))
		if strings.Contains(name, want) || strings.Contains(want, name) {
			score /= 2
		}
		if score < bestScore {
			best, bestScore = ing, score
		}
	}
	if best == "" || bestScore > maxIngredientScore {
		return "", false
	}
	return best, true
}

// Suggest maps free-text ingredient names onto known ingredients and returns
// the recipes that use every mapped one. Names that match nothing are
// reported as unknown.
func (c *Catalog) Suggest(have []string) (mapped, unknown []string, recipes []Recipe) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, raw := range have {
		if fold(raw) == "" {
			continue
		}
		act, ok := c.matchIngredient(raw)
		if !ok {
			unknown = append(unknown, raw)
			continue
		}
		if _, dup := seen[act]; dup {
			continue
		}
		seen[act] = struct{}{}
		mapped = append(mapped, act)
	}
	if len(mapped) == 0 {
		return mapped, unknown, nil
	}

	idxs := append([]int(nil), c.usedBy[mapped[0]]...)
	for _, ing := range mapped[1:] {
		idxs = intersect(idxs, c.usedBy[ing])
		if len(idxs) == 0 {
			break
		}
	}
	recipes = make([]Recipe, 0, len(idxs))
	for _, ix := range idxs {
		recipes = append(recipes, c.recipes[ix])
	}
	return mapped, unknown, recipes
}

// intersect merges two ascending index lists.
func intersect(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
