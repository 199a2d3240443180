package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-insight/internal/classify"
	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/pkg/utils"
)

func newTestStore() *Store {
	return New(classify.NewBuiltin(), domain.CoordSysWGS84)
}

func TestStore_IngestPartitionsByGroup(t *testing.T) {
	s := newTestStore()

	counts := s.Ingest([]domain.RawRecord{
		{"id": "1", "name": "面馆", "type": "餐饮服务;中餐厅", "lng": 116.40, "lat": 39.90},
		{"id": "2", "name": "咖啡", "type": "餐饮服务;咖啡厅", "lng": 116.41, "lat": 39.91},
		{"id": "3", "name": "药房", "type": "医疗保健服务;药房", "lng": 116.42, "lat": 39.92},
	})

	assert.Equal(t, map[string]int{
		domain.GroupFood:    2,
		domain.GroupMedical: 1,
	}, counts)

	assert.Equal(t, 3, s.Total())
	assert.Len(t, s.PointsOf(domain.GroupFood), 2)
	assert.Len(t, s.PointsOf(domain.GroupMedical), 1)
	assert.Len(t, s.PointsOf(domain.GroupAll), 3)
	assert.Len(t, s.AllPoints(), 3)
	assert.Empty(t, s.PointsOf(domain.GroupRetail))
	assert.Equal(t, []string{domain.GroupFood, domain.GroupMedical}, s.Groups())
}

func TestStore_FieldNameCandidates(t *testing.T) {
	s := newTestStore()

	tests := []struct {
		name   string
		record domain.RawRecord
	}{
		{"lng/lat", domain.RawRecord{"lng": 116.4, "lat": 39.9, "type": "restaurant"}},
		{"lon/latitude", domain.RawRecord{"lon": 116.4, "latitude": 39.9, "type": "restaurant"}},
		{"longitude/latitude", domain.RawRecord{"longitude": 116.4, "latitude": 39.9, "type": "restaurant"}},
		{"x/y", domain.RawRecord{"x": 116.4, "y": 39.9, "type": "restaurant"}},
		{"string coords", domain.RawRecord{"lng": "116.4", "lat": "39.9", "type": "restaurant"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := s.Ingest([]domain.RawRecord{tt.record})
			require.Equal(t, 1, counts[domain.GroupFood])
			p := s.PointsOf(domain.GroupFood)[0]
			assert.InDelta(t, 116.4, p.Lng, 1e-9)
			assert.InDelta(t, 39.9, p.Lat, 1e-9)
		})
	}
}

func TestStore_TypeAndNameCandidates(t *testing.T) {
	s := newTestStore()
	s.Ingest([]domain.RawRecord{
		{"lng": 116.4, "lat": 39.9, "category": "hospital", "title": "Main Hospital"},
	})

	pts := s.PointsOf(domain.GroupMedical)
	require.Len(t, pts, 1)
	assert.Equal(t, "Main Hospital", pts[0].Name)
}

func TestStore_DropsBadRecords(t *testing.T) {
	s := newTestStore()

	counts := s.Ingest([]domain.RawRecord{
		{"id": "ok", "type": "restaurant", "lng": 116.4, "lat": 39.9},
		// без координат
		{"id": "no-coords", "type": "restaurant"},
		// координаты не разбираются
		{"id": "bad-coords", "type": "restaurant", "lng": "east", "lat": "north"},
		// вне допустимого диапазона
		{"id": "out-of-range", "type": "restaurant", "lng": 420.0, "lat": 39.9},
		// служебная группа
		{"id": "addr", "type": "地名地址信息;普通地名", "lng": 116.4, "lat": 39.9},
	})

	assert.Equal(t, map[string]int{domain.GroupFood: 1}, counts)
	assert.Equal(t, 1, s.Total())
	assert.Equal(t, 4, s.Dropped())
}

func TestStore_UnclassifiableKeptAsOther(t *testing.T) {
	s := newTestStore()
	counts := s.Ingest([]domain.RawRecord{
		{"id": "1", "lng": 116.4, "lat": 39.9},
		{"id": "2", "type": "что-то странное", "lng": 116.5, "lat": 39.8},
	})

	assert.Equal(t, map[string]int{domain.GroupOther: 2}, counts)
	assert.Equal(t, 0, s.Dropped())
}

func TestStore_SynthesizesMissingIDs(t *testing.T) {
	s := newTestStore()
	s.Ingest([]domain.RawRecord{
		{"type": "restaurant", "lng": 116.4, "lat": 39.9},
		{"id": 42.0, "type": "restaurant", "lng": 116.5, "lat": 39.9},
	})

	pts := s.PointsOf(domain.GroupFood)
	require.Len(t, pts, 2)
	assert.Equal(t, "p0", pts[0].ID)
	assert.Equal(t, "42", pts[1].ID, "numeric ids are formatted without exponent")
}

func TestStore_GroupBBox(t *testing.T) {
	s := newTestStore()
	s.Ingest([]domain.RawRecord{
		{"id": "1", "type": "restaurant", "lng": 116.40, "lat": 39.90},
		{"id": "2", "type": "restaurant", "lng": 116.50, "lat": 39.95},
		{"id": "3", "type": "hospital", "lng": 117.00, "lat": 40.00},
	})

	food, ok := s.GroupBBox(domain.GroupFood)
	require.True(t, ok)
	assert.Equal(t, domain.BBox{MinLng: 116.40, MinLat: 39.90, MaxLng: 116.50, MaxLat: 39.95}, food)

	all, ok := s.GroupBBox(domain.GroupAll)
	require.True(t, ok)
	assert.Equal(t, 117.00, all.MaxLng)

	_, ok = s.GroupBBox(domain.GroupRetail)
	assert.False(t, ok)
}

func TestStore_CoordinateTransform(t *testing.T) {
	s := New(classify.NewBuiltin(), domain.CoordSysGCJ02)
	s.Ingest([]domain.RawRecord{
		{"id": "1", "type": "restaurant", "lng": 116.40, "lat": 39.90},
	})

	wantLat, wantLng := utils.GCJ02ToWGS84(39.90, 116.40)
	p := s.PointsOf(domain.GroupFood)[0]
	assert.InDelta(t, wantLng, p.Lng, 1e-9)
	assert.InDelta(t, wantLat, p.Lat, 1e-9)
	assert.NotEqual(t, 116.40, p.Lng, "gcj02 input must be shifted")
}

func TestStore_ReingestReplacesWholesale(t *testing.T) {
	s := newTestStore()
	s.Ingest([]domain.RawRecord{
		{"id": "1", "type": "restaurant", "lng": 116.4, "lat": 39.9},
		{"id": "2", "type": "hospital", "lng": 116.5, "lat": 39.9},
	})
	require.Equal(t, 2, s.Total())

	counts := s.Ingest([]domain.RawRecord{
		{"id": "3", "type": "bank", "lng": 116.6, "lat": 39.9},
	})

	assert.Equal(t, map[string]int{domain.GroupFinance: 1}, counts)
	assert.Equal(t, 1, s.Total())
	assert.Empty(t, s.PointsOf(domain.GroupFood), "previous generation must be discarded")
	assert.False(t, s.HasGroup(domain.GroupMedical))
}
