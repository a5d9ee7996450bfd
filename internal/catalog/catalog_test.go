// ABOUTME: Tests for the catalog summary derivation and service
// ABOUTME: Uses an httptest backend for the end-to-end count check

package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellara/stellara-admin/internal/backend"
)

func products(categories ...string) []backend.Product {
	out := make([]backend.Product, len(categories))
	for i, c := range categories {
		out[i] = backend.Product{ID: string(rune('a' + i)), Category: c}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		products   []backend.Product
		categories []string
		want       map[string]int
		wantOther  int
		wantTotal  int
	}{
		{
			name:       "empty catalog",
			products:   nil,
			categories: []string{"bags", "perfumes", "beddings"},
			want:       map[string]int{"bags": 0, "perfumes": 0, "beddings": 0},
		},
		{
			name:       "unknown categories go to other",
			products:   products("bags", "shoes", "shoes", ""),
			categories: []string{"bags"},
			want:       map[string]int{"bags": 1},
			wantOther:  3,
			wantTotal:  4,
		},
		{
			name:       "case and whitespace insensitive",
			products:   products("Bags", " bags ", "PERFUMES"),
			categories: []string{"bags", "Perfumes"},
			want:       map[string]int{"bags": 2, "perfumes": 1},
			wantTotal:  3,
		},
		{
			name:       "duplicate categories collapse",
			products:   products("bags"),
			categories: []string{"bags", "bags", ""},
			want:       map[string]int{"bags": 1},
			wantTotal:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.products, tt.categories)

			assert.Equal(t, tt.wantTotal, s.Total())
			for cat, n := range tt.want {
				assert.Equal(t, n, s.Count(cat), "category %s", cat)
			}

			var other, sum int
			for _, tile := range s.Tiles {
				if tile.Kind == KindOther {
					other = tile.Count
				}
				if tile.Kind != KindTotal {
					sum += tile.Count
				}
			}
			assert.Equal(t, tt.wantOther, other)
			assert.Equal(t, s.Total(), sum, "tiles add up to the total")
			assert.Len(t, s.Tiles, TileCount(tt.categories))
		})
	}
}

func TestSummarize_TileOrderAndLabels(t *testing.T) {
	s := Summarize(nil, []string{"bags", "perfumes", "beddings"})

	labels := make([]string, len(s.Tiles))
	for i, tile := range s.Tiles {
		labels[i] = tile.Label
	}
	assert.Equal(t, []string{"All Products", "Bags", "Perfumes", "Beddings", "Other"}, labels)
}

func TestService_LoadFromBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"_id":"1","name":"a","price":1,"category":"bags"},
			{"_id":"2","name":"b","price":1,"category":"bags"},
			{"_id":"3","name":"c","price":1,"category":"perfumes"},
			{"_id":"4","name":"d","price":1,"category":"beddings"}
		]`)
	}))
	defer srv.Close()

	svc := NewService(backend.NewClient(srv.URL, backend.Options{}), []string{"bags", "perfumes", "beddings", "shoes"})

	s, err := svc.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, s.Total())
	assert.Equal(t, 2, s.Count("bags"))
	assert.Equal(t, 1, s.Count("perfumes"))
	assert.Equal(t, 1, s.Count("beddings"))
	assert.Equal(t, 0, s.Count("shoes"))
	assert.Len(t, s.Tiles, svc.TileCount())
}

type failingLister struct{}

func (failingLister) ListProducts(ctx context.Context) ([]backend.Product, error) {
	return nil, errors.New("connection refused")
}

func TestService_LoadFailureIsZeroCounts(t *testing.T) {
	svc := NewService(failingLister{}, []string{"bags", "perfumes", "beddings"})

	s, err := svc.Load(context.Background())
	require.Error(t, err)

	require.Len(t, s.Tiles, 5)
	for _, tile := range s.Tiles {
		assert.Zero(t, tile.Count, "tile %s", tile.Label)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Bags", Label("bags"))
	assert.Equal(t, "Éclat", Label("éclat"))
	assert.Equal(t, "", Label("  "))
}
