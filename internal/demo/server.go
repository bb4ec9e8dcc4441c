package demo

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	smarttable "github.com/poku-e/smarttable"
	"github.com/poku-e/smarttable/query"
)

//go:embed templates/*.html
var tmplFS embed.FS

var tableTmpl = template.Must(template.ParseFS(tmplFS, "templates/table.html"))

// Server renders the recipe table. The markup carries the default smart
// table markers: the smart_table_search and smart_table_extra_filters
// classes, and the data-smart-table-remote and data-smart-table-remote-link
// attributes.
type Server struct {
	catalog *Catalog
	cfg     smarttable.Config
	partial bool
	logger  *zap.Logger
	mux     *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the request logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPartial controls whether the table is marked as a replaceable region.
// Without it every change is a full navigation.
func WithPartial(partial bool) ServerOption {
	return func(s *Server) { s.partial = partial }
}

// NewServer returns a handler serving catalog with the parameter keys and
// page sizes of cfg.
func NewServer(catalog *Catalog, cfg smarttable.Config, opts ...ServerOption) *Server {
	s := &Server{
		catalog: catalog,
		cfg:     cfg,
		partial: true,
		logger:  zap.NewNop(),
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("demo")

	s.mux.HandleFunc("/api/recipes", s.handleRecipes)
	s.mux.HandleFunc("/api/suggest", s.handleSuggest)
	s.mux.HandleFunc("/api/ingredients", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.catalog.Ingredients())
	})
	s.mux.HandleFunc("/", s.handleTable)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withCommonHeaders(s.mux).ServeHTTP(w, r)
}

type recipesResp struct {
	Recipes []Recipe `json:"recipes"`
	Total   int      `json:"total"`
	Offset  int      `json:"offset"`
}

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	settings := query.ParseSettings(values, s.cfg.Keys, s.cfg.InitialPageSize)
	res := s.catalog.Query(FilterFromValues(values, s.cfg.Keys), settings)
	writeJSON(w, recipesResp{Recipes: res.Recipes, Total: res.Total, Offset: res.Offset})
}

type suggestResp struct {
	Mapped       []string `json:"mapped"`
	Unrecognized []string `json:"unrecognized"`
	Suggestions  []Recipe `json:"suggestions"`
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	have := strings.TrimSpace(r.URL.Query().Get("have"))
	if have == "" {
		http.Error(w, "missing 'have' query param", http.StatusBadRequest)
		return
	}
	mapped, unknown, recipes := s.catalog.Suggest(splitCSVLike(have))
	writeJSON(w, suggestResp{Mapped: mapped, Unrecognized: unknown, Suggestions: recipes})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v := s.buildView(r.URL)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf bytes.Buffer
	if err := tableTmpl.Execute(&buf, v); err != nil {
		s.logger.Error("render table", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("write response", zap.Error(err))
		return
	}
	s.logger.Debug("table rendered",
		zap.String("query", r.URL.RawQuery),
		zap.Int("rows", len(v.Rows)),
		zap.Int("total", v.Total))
}

type link struct {
	Label   string
	Href    string
	Current bool
}

type header struct {
	Label string
	Href  string
	Arrow string
}

type option struct {
	Value    string
	Selected bool
}

type row struct {
	Inputs string
	Output string
	Qty    int
}

type view struct {
	Keys        query.Keys
	Partial     bool
	Filter      Filter
	Ingredients []option
	Headers     []header
	Rows        []row
	Total       int
	Info        string
	Pages       []link
	PageSizes   []link
}

var columns = []struct{ label, attr string }{
	{"Inputs", SortInputs},
	{"Output", SortOutput},
	{"Qty", SortQty},
}

func (s *Server) buildView(u *url.URL) view {
	values := u.Query()
	keys := s.cfg.Keys
	settings := query.ParseSettings(values, keys, s.cfg.InitialPageSize)
	filter := FilterFromValues(values, keys)
	res := s.catalog.Query(filter, settings)

	merge := func(pairs ...string) string {
		changes := query.NewChanges()
		for i := 0; i+1 < len(pairs); i += 2 {
			changes.Set(pairs[i], pairs[i+1])
		}
		return query.Merge(u, changes)
	}

	v := view{
		Keys:    keys,
		Partial: s.partial,
		Filter:  filter,
		Total:   res.Total,
	}
	for _, ing := range s.catalog.Ingredients() {
		v.Ingredients = append(v.Ingredients, option{Value: ing, Selected: ing == filter.Ingredient})
	}

	sortAttr, sortDir := query.SortDirection(settings.Sort)
	for _, col := range columns {
		h := header{Label: col.label, Href: merge(keys.Sort, query.NextSort(settings.Sort, col.attr))}
		if sortAttr == col.attr {
			h.Arrow = "▲"
			if sortDir == query.SortDesc {
				h.Arrow = "▼"
			}
		}
		v.Headers = append(v.Headers, h)
	}

	for _, rec := range res.Recipes {
		v.Rows = append(v.Rows, row{Inputs: strings.Join(rec.Inputs, " + "), Output: rec.Output, Qty: rec.Qty})
	}
	v.Info = entriesInfo(res, len(v.Rows))

	if !settings.ShowAll() && res.Total > settings.PageSize {
		pages := (res.Total + settings.PageSize - 1) / settings.PageSize
		if settings.Page > 1 {
			v.Pages = append(v.Pages, link{Label: "«", Href: merge(keys.Page, strconv.Itoa(settings.Page-1))})
		}
		for p := max(1, settings.Page-3); p <= min(pages, settings.Page+3); p++ {
			v.Pages = append(v.Pages, link{
				Label:   strconv.Itoa(p),
				Href:    merge(keys.Page, strconv.Itoa(p)),
				Current: p == settings.Page,
			})
		}
		if settings.Page < pages {
			v.Pages = append(v.Pages, link{Label: "»", Href: merge(keys.Page, strconv.Itoa(settings.Page+1))})
		}
	}

	for _, choice := range query.PageSizeChoices(s.cfg.PageSizes, settings.PageSize, res.Total) {
		l := link{Label: choice, Href: merge(keys.PageSize, choice, keys.Page, s.firstPage())}
		if choice == query.ShowAll {
			l.Label = "all"
			l.Current = settings.ShowAll()
		} else {
			l.Current = choice == strconv.Itoa(settings.PageSize)
		}
		v.PageSizes = append(v.PageSizes, l)
	}
	return v
}

func (s *Server) firstPage() string {
	if s.cfg.FirstPage != "" {
		return s.cfg.FirstPage
	}
	return smarttable.DefaultFirstPage
}

func entriesInfo(res Result, shown int) string {
	switch {
	case res.Total == 0:
		return "No recipes found"
	case shown == 0:
		return fmt.Sprintf("No recipes on this page of %d in total", res.Total)
	case shown == res.Total:
		return fmt.Sprintf("Displaying all %d recipes", res.Total)
	default:
		return fmt.Sprintf("Displaying recipes %d - %d of %d in total", res.Offset+1, res.Offset+shown, res.Total)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

func withCommonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

var csvSplitter = regexp.MustCompile(`[,\n;]+`)

func splitCSVLike(s string) []string {
	raw := csvSplitter.Split(s, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
