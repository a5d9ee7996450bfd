// ABOUTME: Catalog summary: product counts for the dashboard tiles
// ABOUTME: Total, one tile per summary category, and an "Other" tile for everything else

package catalog

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/stellara/stellara-admin/internal/backend"
)

// Tile kinds.
const (
	KindTotal    = "total"
	KindCategory = "category"
	KindOther    = "other"
)

// Tile is one labeled count on the dashboard.
type Tile struct {
	Kind     string
	Label    string
	Category string
	Count    int
}

// Summary is the ordered set of dashboard tiles.
type Summary struct {
	Tiles []Tile
}

// Total returns the All Products count.
func (s Summary) Total() int {
	for _, t := range s.Tiles {
		if t.Kind == KindTotal {
			return t.Count
		}
	}
	return 0
}

// Count returns the tile count for category, or the Other count when
// category is not a summary category.
func (s Summary) Count(category string) int {
	for _, t := range s.Tiles {
		if t.Kind == KindCategory && t.Category == normalize(category) {
			return t.Count
		}
	}
	for _, t := range s.Tiles {
		if t.Kind == KindOther {
			return t.Count
		}
	}
	return 0
}

// TileCount is the number of tiles a summary over categories has. The
// dashboard renders this many placeholders while counts load.
func TileCount(categories []string) int {
	return len(dedupe(categories)) + 2
}

// Summarize counts products per summary category. Categories compare
// case-insensitively; products in any other category, including an empty
// one, count towards Other so the tiles always add up to the total.
func Summarize(products []backend.Product, categories []string) Summary {
	cats := dedupe(categories)

	tiles := make([]Tile, 0, len(cats)+2)
	tiles = append(tiles, Tile{Kind: KindTotal, Label: "All Products", Count: len(products)})

	index := make(map[string]int, len(cats))
	for _, c := range cats {
		index[c] = len(tiles)
		tiles = append(tiles, Tile{Kind: KindCategory, Label: Label(c), Category: c})
	}

	otherIdx := len(tiles)
	tiles = append(tiles, Tile{Kind: KindOther, Label: "Other"})

	for _, p := range products {
		if i, ok := index[normalize(p.Category)]; ok {
			tiles[i].Count++
		} else {
			tiles[otherIdx].Count++
		}
	}

	return Summary{Tiles: tiles}
}

// Label turns a category tag into a tile label: "bags" becomes "Bags".
func Label(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(category)
	return string(unicode.ToUpper(r)) + category[size:]
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

func dedupe(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = normalize(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Lister fetches the product collection.
type Lister interface {
	ListProducts(ctx context.Context) ([]backend.Product, error)
}

// Service builds summaries from the live catalog.
type Service struct {
	lister     Lister
	categories []string
	logger     *slog.Logger
}

// NewService creates a Service that summarizes over categories.
func NewService(lister Lister, categories []string) *Service {
	return &Service{
		lister:     lister,
		categories: dedupe(categories),
		logger:     slog.Default().With("component", "catalog"),
	}
}

// Categories returns the summary categories in tile order.
func (s *Service) Categories() []string {
	return append([]string(nil), s.categories...)
}

// TileCount is the number of tiles Load returns.
func (s *Service) TileCount() int {
	return TileCount(s.categories)
}

// Load fetches the catalog and summarizes it. The dashboard is best effort:
// on failure the error is logged and returned alongside an all-zero summary
// with the same tiles.
func (s *Service) Load(ctx context.Context) (Summary, error) {
	products, err := s.lister.ListProducts(ctx)
	if err != nil {
		s.logger.Warn("failed to load catalog summary", "error", err)
		return Summarize(nil, s.categories), err
	}
	return Summarize(products, s.categories), nil
}
