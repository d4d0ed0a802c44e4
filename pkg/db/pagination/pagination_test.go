package pagination

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Slice(items, Window{Page: 1, PageSize: 2}))
	assert.Equal(t, []int{3, 4}, Slice(items, Window{Page: 2, PageSize: 2}))
	assert.Equal(t, []int{5}, Slice(items, Window{Page: 3, PageSize: 2}))
	assert.Empty(t, Slice(items, Window{Page: 4, PageSize: 2}))
}

func TestBuildPageInfo(t *testing.T) {
	info := BuildPageInfo(Window{Page: 2, PageSize: 25}, 51)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasMore)

	info = BuildPageInfo(Window{Page: 3, PageSize: 25}, 51)
	assert.False(t, info.HasMore)

	assert.Equal(t, 0, TotalPages(0, 25))
}

func TestHugePageDoesNotWrap(t *testing.T) {
	items := []int{1, 2, 3}
	w := Window{Page: math.MaxInt/25 + 2, PageSize: 25}

	assert.GreaterOrEqual(t, w.Offset(), 0)
	assert.Empty(t, Slice(items, w))

	last := Window{Page: MaxPage(25), PageSize: 25}
	start, end := last.Bounds(3)
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)
}
