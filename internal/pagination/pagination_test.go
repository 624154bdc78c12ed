package pagination

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                                 string
		total, page, pageSize                int
		wantPages, wantOffset, wantSize, cur int
	}{
		{"empty result has zero pages", 0, 1, 10, 0, 0, 10, 1},
		{"exact multiple", 30, 1, 10, 3, 0, 10, 1},
		{"remainder adds a page", 31, 2, 10, 4, 10, 10, 2},
		{"single item", 1, 1, 10, 1, 0, 10, 1},
		{"page size clamped up", 5, 1, 0, 5, 0, 1, 1},
		{"page size clamped down", 250, 2, 500, 3, 100, 100, 2},
		{"negative page", 50, -3, 10, 5, 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(tt.total, tt.page, tt.pageSize)
			assert.Equal(t, tt.total, got.TotalCount)
			assert.Equal(t, tt.wantPages, got.TotalPages)
			assert.Equal(t, tt.wantOffset, got.Offset)
			assert.Equal(t, tt.wantSize, got.PageSize)
			assert.Equal(t, tt.cur, got.CurrentPage)
		})
	}
}

func TestPaginate_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("offset is (page-1)*page_size", prop.ForAll(
		func(total, page, pageSize int) bool {
			p := Paginate(total, page, pageSize)
			return p.Offset == (page-1)*pageSize
		},
		gen.IntRange(0, 1_000_000),
		gen.IntRange(1, 10_000),
		gen.IntRange(1, 100),
	))

	properties.Property("total_pages is ceil(total/page_size)", prop.ForAll(
		func(total, pageSize int) bool {
			p := Paginate(total, 1, pageSize)
			want := int(math.Ceil(float64(total) / float64(pageSize)))
			return p.TotalPages == want
		},
		gen.IntRange(0, 1_000_000),
		gen.IntRange(1, 100),
	))

	properties.Property("page_size always lands in [1,100]", prop.ForAll(
		func(pageSize int) bool {
			p := Paginate(10, 1, pageSize)
			return p.PageSize >= 1 && p.PageSize <= 100
		},
		gen.Int(),
	))

	properties.Property("page below one is treated as one", prop.ForAll(
		func(page int) bool {
			p := Paginate(10, page, 10)
			return p.CurrentPage == 1 && p.Offset == 0
		},
		gen.IntRange(math.MinInt32, 0),
	))

	properties.TestingRun(t)
}
