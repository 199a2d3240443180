package cluster

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomItems(n int, seed int64) []treeItem {
	rng := rand.New(rand.NewSource(seed))
	items := make([]treeItem, n)
	for i := range items {
		items[i] = treeItem{x: rng.Float64(), y: rng.Float64(), numPoints: 1}
	}
	return items
}

func TestKDBush_RangeMatchesBruteForce(t *testing.T) {
	items := randomItems(500, 42)
	bush := newKDBush(items, 16)

	queries := [][4]float64{
		{0.2, 0.2, 0.5, 0.5},
		{0.0, 0.0, 1.0, 1.0},
		{0.9, 0.9, 0.95, 0.95},
		{0.4, 0.0, 0.4, 1.0},
	}

	for _, q := range queries {
		got := bush.Range(q[0], q[1], q[2], q[3])

		var want []int
		for i, it := range items {
			if it.x >= q[0] && it.x <= q[2] && it.y >= q[1] && it.y <= q[3] {
				want = append(want, i)
			}
		}

		sort.Ints(got)
		sort.Ints(want)
		assert.Equal(t, want, got)
	}
}

func TestKDBush_WithinMatchesBruteForce(t *testing.T) {
	items := randomItems(500, 7)
	bush := newKDBush(items, 16)

	queries := []struct{ x, y, r float64 }{
		{0.5, 0.5, 0.1},
		{0.0, 0.0, 0.3},
		{0.9, 0.1, 0.05},
		{0.5, 0.5, 2.0},
	}

	for _, q := range queries {
		got := bush.Within(q.x, q.y, q.r)

		var want []int
		for i, it := range items {
			if sqDist(it.x, it.y, q.x, q.y) <= q.r*q.r {
				want = append(want, i)
			}
		}

		sort.Ints(got)
		sort.Ints(want)
		assert.Equal(t, want, got)
	}
}

func TestKDBush_SmallNodeSize(t *testing.T) {
	// nodeSize меньше количества точек заставляет обходить внутренние узлы
	items := randomItems(100, 3)
	bush := newKDBush(items, 4)

	got := bush.Range(0.25, 0.25, 0.75, 0.75)
	var want []int
	for i, it := range items {
		if it.x >= 0.25 && it.x <= 0.75 && it.y >= 0.25 && it.y <= 0.75 {
			want = append(want, i)
		}
	}
	sort.Ints(got)
	sort.Ints(want)
	assert.Equal(t, want, got)
}

func TestKDBush_Empty(t *testing.T) {
	bush := newKDBush(nil, 64)
	assert.Empty(t, bush.Range(0, 0, 1, 1))
	assert.Empty(t, bush.Within(0.5, 0.5, 10))
}

func TestKDBush_SinglePoint(t *testing.T) {
	bush := newKDBush([]treeItem{{x: 0.5, y: 0.5, numPoints: 1}}, 64)

	require.Equal(t, []int{0}, bush.Range(0, 0, 1, 1))
	assert.Empty(t, bush.Range(0.6, 0.6, 1, 1))
	require.Equal(t, []int{0}, bush.Within(0.5, 0.5, 0.01))
	assert.Empty(t, bush.Within(0.9, 0.9, 0.01))
}
