package demo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poku-e/smarttable/query"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog("testdata/recipes.csv")
	require.NoError(t, err)
	return c
}

func outputs(recipes []Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.Output)
	}
	return out
}

func allRows() query.Settings { return query.Settings{Page: 1} }

func TestLoadCatalog(t *testing.T) {
	c := loadTestCatalog(t)
	assert.Equal(t, 8, c.Len())
	assert.Equal(t, "testdata/recipes.csv", c.Path())
	assert.Equal(t, []string{"Apple", "Cheese", "Dough", "Egg", "Flour", "Milk", "Salt", "Sugar", "Tomato", "Water", "Wheat"},
		c.Ingredients())
}

func TestNewCatalogRejectsBadCSV(t *testing.T) {
	_, err := NewCatalog(strings.NewReader("input1_name,output_name\nA,B\n"))
	assert.ErrorContains(t, err, "missing required column: input2_name")

	_, err = NewCatalog(strings.NewReader(""))
	assert.ErrorContains(t, err, "no rows")
}

func TestNewCatalogSkipsIncompleteRows(t *testing.T) {
	c, err := NewCatalog(strings.NewReader(
		"input1_name,input2_name,input3_name,output_name,output_qty\n" +
			"A,,,B,x\n" +
			",,,C,1\n" +
			"D,,,,1\n"))
	require.NoError(t, err)
	res := c.Query(Filter{}, allRows())
	require.Len(t, res.Recipes, 1)
	assert.Equal(t, Recipe{Inputs: []string{"A"}, Output: "B", Qty: 1}, res.Recipes[0])

	assert.ErrorContains(t, c.Reload(), "no backing file")
}

func TestQueryFilters(t *testing.T) {
	c := loadTestCatalog(t)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"none", Filter{}, []string{"Flour", "Dough", "Pizza", "Cheese", "Sauce", "Brine", "Jam", "Pancake"}},
		{"search input", Filter{Search: "salt"}, []string{"Sauce", "Brine"}},
		{"search output and input", Filter{Search: "FLOUR"}, []string{"Flour", "Dough", "Pancake"}},
		{"search fuzzy", Filter{Search: "tomatoe"}, []string{"Pizza", "Sauce"}},
		{"search no match", Filter{Search: "zzzzzzzz"}, nil},
		{"ingredient", Filter{Ingredient: "Flour"}, []string{"Dough", "Pancake"}},
		{"output", Filter{Output: "an"}, []string{"Pancake"}},
		{"single", Filter{Single: true}, []string{"Flour", "Cheese"}},
		{"qty one", Filter{Qty: QtyOne}, []string{"Dough", "Pizza", "Cheese"}},
		{"qty multi", Filter{Qty: QtyMulti}, []string{"Flour", "Sauce", "Brine", "Jam", "Pancake"}},
		{"combined", Filter{Search: "salt", Qty: QtyMulti, Output: "sau"}, []string{"Sauce"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Query(tt.filter, allRows())
			assert.Equal(t, len(tt.want), res.Total)
			if tt.want == nil {
				assert.Empty(t, res.Recipes)
				return
			}
			assert.Equal(t, tt.want, outputs(res.Recipes))
		})
	}
}

func TestQuerySortAndPaginate(t *testing.T) {
	c := loadTestCatalog(t)

	res := c.Query(Filter{}, query.Settings{Sort: "output asc", Page: 1})
	assert.Equal(t, []string{"Brine", "Cheese", "Dough", "Flour", "Jam", "Pancake", "Pizza", "Sauce"}, outputs(res.Recipes))

	res = c.Query(Filter{}, query.Settings{Sort: "qty desc", Page: 1, PageSize: 3})
	assert.Equal(t, []string{"Pancake", "Brine", "Sauce"}, outputs(res.Recipes))

	res = c.Query(Filter{}, query.Settings{Sort: "inputs desc", Page: 1, PageSize: 2})
	assert.Equal(t, []string{"Pizza", "Pancake"}, outputs(res.Recipes))

	res = c.Query(Filter{}, query.Settings{Page: 3, PageSize: 3})
	assert.Equal(t, []string{"Jam", "Pancake"}, outputs(res.Recipes))
	assert.Equal(t, 6, res.Offset)
	assert.Equal(t, 8, res.Total)

	res = c.Query(Filter{}, query.Settings{Page: 5, PageSize: 3})
	assert.Empty(t, res.Recipes)
	assert.Equal(t, 8, res.Total)

	// unknown sort attributes keep file order
	res = c.Query(Filter{}, query.Settings{Sort: "calories asc", Page: 1, PageSize: 2})
	assert.Equal(t, []string{"Flour", "Dough"}, outputs(res.Recipes))
}

func TestFilterFromValues(t *testing.T) {
	values := query.ParseQuery("st_search=+salt+&ingredient=Flour&single=1&output=jam&qty=multi").Values()
	assert.Equal(t, Filter{Search: "salt", Ingredient: "Flour", Output: "jam", Single: true, Qty: QtyMulti},
		FilterFromValues(values, query.DefaultKeys()))
}

func TestFold(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"spacing and case", "  Crème   Brûlée ", "crème brûlée"},
		{"combining marks dropped", "Cre\u0300me", "creme"},
		{"symbols dropped", "Salt™ + Pepper", "salt pepper"},
		{"tabs become spaces", "Olive\tOil", "olive oil"},
		{"empty", " \n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fold(tt.in))
		})
	}
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("abc", "abc"))
	assert.Equal(t, 3, editDistance("", "abc"))
	assert.Equal(t, 3, editDistance("abc", ""))
	assert.Equal(t, 1, editDistance("tomato", "tomatoe"))
	assert.Equal(t, 3, editDistance("kitten", "sitting"))
	assert.Equal(t, 1, editDistance("crème", "creme"))
}

func TestSuggest(t *testing.T) {
	c := loadTestCatalog(t)

	mapped, unknown, recipes := c.Suggest([]string{"salt", " watr ", "Salt", "unobtainium", ""})
	assert.Equal(t, []string{"Salt", "Water"}, mapped)
	assert.Equal(t, []string{"unobtainium"}, unknown)
	assert.Equal(t, []string{"Brine"}, outputs(recipes))

	mapped, _, recipes = c.Suggest([]string{"flour"})
	assert.Equal(t, []string{"Flour"}, mapped)
	assert.Equal(t, []string{"Dough", "Pancake"}, outputs(recipes))

	_, _, recipes = c.Suggest(nil)
	assert.Nil(t, recipes)
}
