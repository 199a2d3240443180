package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
)

const featureCollectionDoc = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"id": "p1",
			"geometry": {"type": "Point", "coordinates": [116.4, 39.9]},
			"properties": {"name": "面馆", "type": "restaurant"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [116.41, 39.91]},
			"properties": {"id": "p2", "name": "医院", "type": "hospital"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]},
			"properties": {"name": "площадь", "type": "place"}
		}
	]
}`

const recordsDoc = `[
	{"id": "r1", "name": "bank", "type": "bank", "lng": 116.5, "lat": 39.8},
	{"id": "r2", "name": "atm", "type": "atm", "lon": 116.6, "latitude": 39.7}
]`

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantFormat string
		wantCount  int
		wantErr    bool
	}{
		{"feature collection", featureCollectionDoc, domain.DatasetFormatFeatureCollection, 3, false},
		{"bare record array", recordsDoc, domain.DatasetFormatRecords, 2, false},
		{"records under key", `{"records": ` + recordsDoc + `}`, domain.DatasetFormatRecords, 2, false},
		{"data under key", `{"data": ` + recordsDoc + `}`, domain.DatasetFormatRecords, 2, false},
		{"empty document", "   ", "", 0, true},
		{"unrecognized shape", `{"hello": 1}`, "", 0, true},
		{"broken json", `{"records": [`, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, format, err := Normalize([]byte(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
			assert.Len(t, records, tt.wantCount)
		})
	}
}

func TestNormalize_FeatureCollectionShape(t *testing.T) {
	records, _, err := Normalize([]byte(featureCollectionDoc))
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Координаты точечной геометрии и идентификатор черты попадают в запись
	assert.Equal(t, "p1", records[0]["id"])
	assert.Equal(t, 116.4, records[0]["lng"])
	assert.Equal(t, 39.9, records[0]["lat"])
	assert.Equal(t, "restaurant", records[0]["type"])

	// Идентификатор из свойств не затирается
	assert.Equal(t, "p2", records[1]["id"])

	// Черта без точечной геометрии остаётся записью без координат
	_, hasLng := records[2]["lng"]
	assert.False(t, hasLng, "polygon feature must not gain coordinates")
}

func TestLoader_FetchFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(recordsDoc))
	}))
	defer srv.Close()

	l := NewLoader(5*time.Second, zap.NewNop())
	records, meta, err := l.FetchRecords(testContext(t), srv.URL)
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, srv.URL, meta.Source)
	assert.Equal(t, domain.DatasetFormatRecords, meta.Format)
	assert.Equal(t, 2, meta.Records)
}

func TestLoader_FetchFromFile(t *testing.T) {
	path := writeTempFile(t, "city.geojson", featureCollectionDoc)

	l := NewLoader(5*time.Second, zap.NewNop())
	records, meta, err := l.FetchRecords(testContext(t), path)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, domain.DatasetFormatFeatureCollection, meta.Format)
}

func TestLoader_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	l := NewLoader(5*time.Second, zap.NewNop())
	_, _, err := l.FetchRecords(testContext(t), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(5*time.Second, zap.NewNop())
	_, _, err := l.FetchRecords(testContext(t), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestRulesetLoader_FetchFromHTTP(t *testing.T) {
	const doc = `{
		"name": "city-rules",
		"version": "2",
		"groups": ["food", "medical", "other"],
		"level1": {"restaurant": "food", "hospital": "medical"},
		"overrides": [{"level1": "restaurant", "substrings": ["буфет"], "group": "other"}]
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(doc))
	}))
	defer srv.Close()

	l := NewRulesetLoader(5*time.Second, zap.NewNop())
	rs, err := l.FetchRuleset(testContext(t), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "city-rules", rs.Name)
	assert.Len(t, rs.Level1, 2)
	assert.Len(t, rs.Overrides, 1)
	// Опущенный приоритет наследует порядок групп
	assert.Equal(t, rs.Groups, rs.Priority)
	assert.NoError(t, rs.Validate())
}

func TestRulesetLoader_FetchFromFile(t *testing.T) {
	path := writeTempFile(t, "rules.json", `{
		"groups": ["food"],
		"level1": {"restaurant": "food"},
		"priority": ["food"]
	}`)

	l := NewRulesetLoader(5*time.Second, zap.NewNop())
	rs, err := l.FetchRuleset(testContext(t), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"food"}, rs.Priority)
}

func TestRulesetLoader_BrokenDocument(t *testing.T) {
	path := writeTempFile(t, "rules.json", `{"groups": [`)

	l := NewRulesetLoader(5*time.Second, zap.NewNop())
	_, err := l.FetchRuleset(testContext(t), path)
	require.Error(t, err)
}
