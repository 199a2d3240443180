package siteselect

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/grid"
	"github.com/poi-insight/internal/pkg/utils"
)

// sourceFor раздаёт точки по группам, включая псевдогруппу all.
func sourceFor(points []domain.Point) grid.Source {
	return func(group string) []domain.Point {
		if group == domain.GroupAll {
			return points
		}
		var out []domain.Point
		for _, p := range points {
			if p.Group == group {
				out = append(out, p)
			}
		}
		return out
	}
}

func gridsFor(points []domain.Point) *grid.Set {
	return grid.NewSet(sourceFor(points), grid.DefaultCellSize, zap.NewNop())
}

func cityFixture(n int, seed int64) []domain.Point {
	rng := rand.New(rand.NewSource(seed))
	groups := []string{
		domain.GroupFood, domain.GroupRetail, domain.GroupMedical,
		domain.GroupTransport, domain.GroupLife, domain.GroupEntertainment,
	}
	pts := make([]domain.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, domain.Point{
			ID:    "p",
			Group: groups[rng.Intn(len(groups))],
			Lng:   116.35 + rng.Float64()*0.10,
			Lat:   39.85 + rng.Float64()*0.08,
		})
	}
	return pts
}

var fixtureBBox = domain.BBox{MinLng: 116.35, MinLat: 39.85, MaxLng: 116.45, MaxLat: 39.93}

func weightedTotal(m Metrics) float64 {
	return 0.35*m.Demand + 0.20*m.Access + 0.25*m.Competition + 0.15*m.Synergy + 0.05*m.Center
}

func TestScorer_MetricBoundsAndTotal(t *testing.T) {
	points := cityFixture(300, 11)
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	results := scorer.Rank(gridsFor(points), domain.GroupFood, fixtureBBox, 10000)
	require.NotEmpty(t, results)

	for _, r := range results {
		for name, v := range map[string]float64{
			"demand":      r.Metrics.Demand,
			"access":      r.Metrics.Access,
			"competition": r.Metrics.Competition,
			"synergy":     r.Metrics.Synergy,
			"center":      r.Metrics.Center,
		} {
			assert.GreaterOrEqual(t, v, 0.0, "metric %s below range", name)
			assert.LessOrEqual(t, v, 1.0, "metric %s above range", name)
		}
		assert.InDelta(t, weightedTotal(r.Metrics), r.Total, 1e-9)
		assert.GreaterOrEqual(t, r.Raw.CompetitionCount, 0)
		assert.GreaterOrEqual(t, r.Raw.DemandCount, 0)
	}

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Total, results[i].Total,
			"results must be sorted by total, descending")
	}
}

func TestScorer_DegenerateBBoxFallsBackToCentroid(t *testing.T) {
	points := cityFixture(50, 3)
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	collapsed := domain.BBox{MinLng: 116.40, MinLat: 39.90, MaxLng: 116.40, MaxLat: 39.90}
	results := scorer.Rank(gridsFor(points), domain.GroupFood, collapsed, 10)

	require.Len(t, results, 1, "degenerate bbox yields the single centroid candidate")
	r := results[0]
	assert.Equal(t, 116.40, r.Lng)
	assert.Equal(t, 39.90, r.Lat)

	// A one-candidate set has no spread in any metric.
	assert.Equal(t, 0.5, r.Metrics.Demand)
	assert.Equal(t, 0.5, r.Metrics.Access)
	assert.Equal(t, 0.5, r.Metrics.Competition)
	assert.Equal(t, 0.5, r.Metrics.Synergy)
	assert.Equal(t, 0.5, r.Metrics.Center)
	assert.InDelta(t, 0.5, r.Total, 1e-12)
}

func TestScorer_RankingIsDeterministic(t *testing.T) {
	points := cityFixture(200, 17)
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	first := scorer.Rank(gridsFor(points), domain.GroupRetail, fixtureBBox, 25)
	second := scorer.Rank(gridsFor(points), domain.GroupRetail, fixtureBBox, 25)

	assert.Equal(t, first, second, "identical inputs must produce an identical ordered list")
}

func TestScorer_CandidateCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxCandidates = 50
	scorer := NewScorer(cfg, zap.NewNop())

	wide := domain.BBox{MinLng: 116.30, MinLat: 39.80, MaxLng: 116.50, MaxLat: 39.95}
	cands := scorer.candidates(wide)

	assert.LessOrEqual(t, len(cands), 50, "widened spacing keeps the candidate count under the cap")
	assert.Greater(t, len(cands), 10, "widening must not collapse the grid entirely")

	for _, c := range cands {
		assert.True(t, wide.Contains(c.lng, c.lat))
	}
}

func TestScorer_BaseSpacingWhenUnderCap(t *testing.T) {
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	// Roughly 900 x 900 m, a handful of 400 m steps per axis.
	small := domain.BBox{
		MinLng: 116.40,
		MinLat: 39.90,
		MaxLng: 116.40 + utils.MetersToLngDegrees(900, 39.90),
		MaxLat: 39.90 + utils.MetersToLatDegrees(900),
	}
	cands := scorer.candidates(small)
	assert.Len(t, cands, 9, "3 columns by 3 rows at the base spacing")
}

func TestScorer_AccessMetricPrefersTransport(t *testing.T) {
	base := domain.Point{Lng: 116.40, Lat: 39.90}
	foodNear := domain.Point{ID: "f", Group: domain.GroupFood,
		Lng: base.Lng + utils.MetersToLngDegrees(200, base.Lat), Lat: base.Lat}
	stop := domain.Point{ID: "t", Group: domain.GroupTransport,
		Lng: base.Lng + utils.MetersToLngDegrees(1000, base.Lat), Lat: base.Lat}

	collapsed := domain.BBox{MinLng: base.Lng, MinLat: base.Lat, MaxLng: base.Lng, MaxLat: base.Lat}
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	withTransport := scorer.Rank(gridsFor([]domain.Point{foodNear, stop}), domain.GroupFood, collapsed, 1)
	require.Len(t, withTransport, 1)
	assert.InDelta(t, 1000, withTransport[0].Raw.AccessMeters, 10,
		"with transport present, access measures distance to the nearest stop")

	withoutTransport := scorer.Rank(gridsFor([]domain.Point{foodNear}), domain.GroupFood, collapsed, 1)
	require.Len(t, withoutTransport, 1)
	assert.InDelta(t, 200, withoutTransport[0].Raw.AccessMeters, 10,
		"without transport, any point counts for access")
}

func TestScorer_AccessCappedWhenNothingReachable(t *testing.T) {
	lonely := domain.Point{ID: "x", Group: domain.GroupFood,
		Lng: 116.40 + utils.MetersToLngDegrees(20000, 39.90), Lat: 39.90}

	collapsed := domain.BBox{MinLng: 116.40, MinLat: 39.90, MaxLng: 116.40, MaxLat: 39.90}
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	results := scorer.Rank(gridsFor([]domain.Point{lonely}), domain.GroupFood, collapsed, 1)
	require.Len(t, results, 1)
	assert.Equal(t, 5000.0, results[0].Raw.AccessMeters,
		"nothing within the search ladder leaves access at the cap")
}

func TestScorer_EmptyDatasetStillRanks(t *testing.T) {
	scorer := NewScorer(DefaultConfig(), zap.NewNop())

	results := scorer.Rank(gridsFor(nil), domain.GroupFood, fixtureBBox, 5)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, 0.5, r.Metrics.Demand, "no spread in any metric over an empty dataset")
		assert.InDelta(t, 0.5, r.Total, 1e-12)
	}
}

func TestScorer_TopNTruncation(t *testing.T) {
	points := cityFixture(100, 29)
	scorer := NewScorer(DefaultConfig(), zap.NewNop())
	grids := gridsFor(points)

	three := scorer.Rank(grids, domain.GroupFood, fixtureBBox, 3)
	assert.Len(t, three, 3)

	byDefault := scorer.Rank(grids, domain.GroupFood, fixtureBBox, 0)
	assert.Len(t, byDefault, 10, "default top N")

	assert.Equal(t, three, byDefault[:3], "truncation must not reorder the head")
}
