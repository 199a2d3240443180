package analysis

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poi-insight/internal/domain"
	"github.com/poi-insight/internal/domain/repository"
	"github.com/poi-insight/internal/engine"
)

// stubStreams эмулирует Redis Streams каналом в памяти
type stubStreams struct {
	mu        sync.Mutex
	msgs      chan domain.StreamMessage
	published []domain.AnalysisResponseEvent
	acked     []string
	groups    []string
}

func newStubStreams() *stubStreams {
	return &stubStreams{msgs: make(chan domain.StreamMessage, 16)}
}

func (s *stubStreams) CreateConsumerGroup(_ context.Context, stream, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, stream+"/"+group)
	return nil
}

func (s *stubStreams) ConsumeStream(context.Context, string, string, string) (<-chan domain.StreamMessage, error) {
	return s.msgs, nil
}

func (s *stubStreams) AckMessage(_ context.Context, _, _, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, messageID)
	return nil
}

func (s *stubStreams) PublishToStream(_ context.Context, _ string, data interface{}) error {
	evt, ok := data.(domain.AnalysisResponseEvent)
	if !ok {
		return eris.Errorf("unexpected publish type %T", data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, evt)
	return nil
}

func (s *stubStreams) publishedEvents() []domain.AnalysisResponseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnalysisResponseEvent, len(s.published))
	copy(out, s.published)
	return out
}

func (s *stubStreams) ackedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.acked))
	copy(out, s.acked)
	return out
}

// fakeCache хранит записи в памяти без учёта TTL
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return val, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *fakeCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

type stubDatasets struct {
	records []domain.RawRecord
}

func (s *stubDatasets) FetchRecords(_ context.Context, source string) ([]domain.RawRecord, *domain.DatasetMeta, error) {
	return s.records, &domain.DatasetMeta{
		Source:  source,
		Format:  domain.DatasetFormatRecords,
		Records: len(s.records),
	}, nil
}

type stubRulesets struct{}

func (s *stubRulesets) FetchRuleset(context.Context, string) (*domain.ClassificationRuleset, error) {
	return nil, eris.New("no external ruleset")
}

// countingEngine считает обращения site selection к настоящему движку
type countingEngine struct {
	inner     *engine.Engine
	siteCalls atomic.Int32
}

func (c *countingEngine) Do(ctx context.Context, req engine.Request) engine.Response {
	if req.Kind == engine.KindSiteSelect {
		c.siteCalls.Add(1)
	}
	return c.inner.Do(ctx, req)
}

func (c *countingEngine) Generation() uint64 {
	return c.inner.Generation()
}

func cityRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{"id": "f1", "name": "Dumpling House", "type": "restaurant", "lng": 116.4000, "lat": 39.9000},
		{"id": "f2", "name": "Morning Cafe", "type": "cafe", "lng": 116.4002, "lat": 39.9001},
		{"id": "f3", "name": "Noodle Bar", "type": "restaurant", "lng": 116.4010, "lat": 39.9005},
		{"id": "m1", "name": "Central Hospital", "type": "hospital", "lng": 116.4200, "lat": 39.9100},
		{"id": "m2", "name": "Night Pharmacy", "type": "pharmacy", "lng": 116.3800, "lat": 39.8900},
	}
}

// startWorker поднимает настоящий движок и воркер поверх стабов
func startWorker(t *testing.T, cache *fakeCache) (*stubStreams, *countingEngine) {
	t.Helper()

	eng := engine.New(engine.Config{},
		&stubDatasets{records: cityRecords()},
		&stubRulesets{},
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go eng.Run(ctx)

	counting := &countingEngine{inner: eng}
	streams := newStubStreams()

	// Типизированный nil в интерфейсе не равен nil
	var cacheRepo repository.CacheRepository
	if cache != nil {
		cacheRepo = cache
	}

	w := NewAnalysisWorker(counting, streams, cacheRepo, "test-group", "test-consumer", time.Minute, zap.NewNop())
	go func() {
		_ = w.Start(ctx)
	}()
	t.Cleanup(func() {
		_ = w.Stop()
	})

	return streams, counting
}

func envelope(t *testing.T, kind, requestID string, payload interface{}) string {
	t.Helper()
	evt := domain.AnalysisRequestEvent{Kind: kind, RequestID: requestID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		evt.Payload = raw
	}
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return string(data)
}

// waitPublished ждёт, пока воркер опубликует n ответов
func waitPublished(t *testing.T, streams *stubStreams, n int) []domain.AnalysisResponseEvent {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(streams.publishedEvents()) >= n
	}, 5*time.Second, 10*time.Millisecond)
	return streams.publishedEvents()
}

func initPayload() map[string]string {
	return map[string]string{"dataset_source": "memory://city"}
}

func TestAnalysisWorker_ProcessesRequestEnvelope(t *testing.T) {
	streams, _ := startWorker(t, nil)

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "INIT", "init-1", initPayload())}

	published := waitPublished(t, streams, 1)
	resp := published[0]
	assert.Equal(t, "INIT_DONE", resp.Kind)
	assert.Equal(t, "init-1", resp.RequestID)

	var done engine.InitDone
	require.NoError(t, json.Unmarshal(resp.Payload, &done))
	assert.Equal(t, 5, done.TotalCount)
	assert.Equal(t, uint64(1), done.Generation)

	assert.Equal(t, []string{"1-0"}, streams.ackedIDs())
}

func TestAnalysisWorker_ErrorResponsesArePublished(t *testing.T) {
	streams, _ := startWorker(t, nil)

	// Запрос до инициализации набора
	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "QUERY", "q-1", map[string]interface{}{
		"bbox":   []float64{116.37, 39.88, 116.43, 39.92},
		"zoom":   12,
		"groups": []string{"food"},
	})}

	published := waitPublished(t, streams, 1)
	resp := published[0]
	assert.Equal(t, "ERROR", resp.Kind)
	assert.Equal(t, "q-1", resp.RequestID)

	var errPayload engine.ErrorPayload
	require.NoError(t, json.Unmarshal(resp.Payload, &errPayload))
	assert.Equal(t, "ENGINE_NOT_READY", errPayload.Code)
	assert.Equal(t, "QUERY", errPayload.SourceType)
}

func TestAnalysisWorker_MalformedMessageAckedAndSkipped(t *testing.T) {
	streams, _ := startWorker(t, nil)

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: "{not json"}
	streams.msgs <- domain.StreamMessage{ID: "2-0", Data: envelope(t, "INIT", "init-1", initPayload())}

	published := waitPublished(t, streams, 1)
	// Битое сообщение не породило ответа, но подтверждено
	assert.Len(t, published, 1)
	assert.Equal(t, "INIT_DONE", published[0].Kind)
	assert.Equal(t, []string{"1-0", "2-0"}, streams.ackedIDs())
}

// poisonedEngine отвечает значением, которое не кодируется в JSON
type poisonedEngine struct{}

func (poisonedEngine) Do(_ context.Context, req engine.Request) engine.Response {
	return engine.Response{
		Kind:      engine.KindStatsResult,
		RequestID: req.RequestID,
		Payload:   math.Inf(1),
	}
}

func (poisonedEngine) Generation() uint64 { return 0 }

func TestAnalysisWorker_UnserializableResponseReportedAsStreamError(t *testing.T) {
	streams := newStubStreams()
	w := NewAnalysisWorker(poisonedEngine{}, streams, nil, "test-group", "test-consumer", time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = w.Start(ctx)
	}()
	t.Cleanup(func() {
		_ = w.Stop()
	})

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "STATS", "p-1", nil)}

	published := waitPublished(t, streams, 1)
	resp := published[0]
	assert.Equal(t, "ERROR", resp.Kind)
	assert.Equal(t, "p-1", resp.RequestID)

	var errPayload engine.ErrorPayload
	require.NoError(t, json.Unmarshal(resp.Payload, &errPayload))
	assert.Equal(t, "STREAM_ERROR", errPayload.Code)
	assert.Equal(t, "STATS", errPayload.SourceType)

	assert.Equal(t, []string{"1-0"}, streams.ackedIDs())
}

func TestAnalysisWorker_MissingRequestIDAssigned(t *testing.T) {
	streams, _ := startWorker(t, nil)

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "STATS", "", nil)}

	published := waitPublished(t, streams, 1)
	assert.Equal(t, "STATS_RESULT", published[0].Kind)
	assert.NotEmpty(t, published[0].RequestID)
}

func TestAnalysisWorker_SiteSelectCaching(t *testing.T) {
	cache := newFakeCache()
	streams, counting := startWorker(t, cache)

	sitePayload := map[string]interface{}{
		"bbox":         []float64{116.37, 39.88, 116.43, 39.92},
		"target_group": "food",
		"top_n":        3,
	}

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "INIT", "init-1", initPayload())}
	waitPublished(t, streams, 1)

	streams.msgs <- domain.StreamMessage{ID: "2-0", Data: envelope(t, "SITE_SELECT", "s-1", sitePayload)}
	waitPublished(t, streams, 2)

	streams.msgs <- domain.StreamMessage{ID: "3-0", Data: envelope(t, "SITE_SELECT", "s-2", sitePayload)}
	published := waitPublished(t, streams, 3)

	// Второй идентичный запрос обслужен из кеша
	assert.Equal(t, int32(1), counting.siteCalls.Load())
	assert.Equal(t, 1, cache.setCount())

	first, second := published[1], published[2]
	assert.Equal(t, "SITE_SELECT_RESULT", first.Kind)
	assert.Equal(t, "SITE_SELECT_RESULT", second.Kind)
	assert.Equal(t, "s-1", first.RequestID)
	assert.Equal(t, "s-2", second.RequestID)
	assert.JSONEq(t, string(first.Payload), string(second.Payload))
}

func TestAnalysisWorker_ReInitInvalidatesCacheKey(t *testing.T) {
	cache := newFakeCache()
	streams, counting := startWorker(t, cache)

	sitePayload := map[string]interface{}{
		"bbox":         []float64{116.37, 39.88, 116.43, 39.92},
		"target_group": "food",
		"top_n":        3,
	}

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "INIT", "init-1", initPayload())}
	waitPublished(t, streams, 1)

	streams.msgs <- domain.StreamMessage{ID: "2-0", Data: envelope(t, "SITE_SELECT", "s-1", sitePayload)}
	waitPublished(t, streams, 2)

	// Переинициализация поднимает поколение, прежний ключ перестаёт совпадать
	streams.msgs <- domain.StreamMessage{ID: "3-0", Data: envelope(t, "INIT", "init-2", initPayload())}
	waitPublished(t, streams, 3)

	streams.msgs <- domain.StreamMessage{ID: "4-0", Data: envelope(t, "SITE_SELECT", "s-2", sitePayload)}
	waitPublished(t, streams, 4)

	assert.Equal(t, int32(2), counting.siteCalls.Load())
	assert.Equal(t, 2, cache.setCount())
}

func TestAnalysisWorker_ErrorsAreNotCached(t *testing.T) {
	cache := newFakeCache()
	streams, counting := startWorker(t, cache)

	streams.msgs <- domain.StreamMessage{ID: "1-0", Data: envelope(t, "INIT", "init-1", initPayload())}
	waitPublished(t, streams, 1)

	// Слишком большой прямоугольник даёт BBOX_TOO_LARGE
	badPayload := map[string]interface{}{
		"bbox":         []float64{110.0, 30.0, 120.0, 40.0},
		"target_group": "food",
	}

	streams.msgs <- domain.StreamMessage{ID: "2-0", Data: envelope(t, "SITE_SELECT", "s-1", badPayload)}
	waitPublished(t, streams, 2)

	streams.msgs <- domain.StreamMessage{ID: "3-0", Data: envelope(t, "SITE_SELECT", "s-2", badPayload)}
	published := waitPublished(t, streams, 3)

	// Ошибка не кешируется: оба запроса дошли до движка
	assert.Equal(t, int32(2), counting.siteCalls.Load())
	assert.Equal(t, 0, cache.setCount())
	assert.Equal(t, "ERROR", published[1].Kind)
	assert.Equal(t, "ERROR", published[2].Kind)
}
