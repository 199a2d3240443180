package domain

import "encoding/json"

// Stream names (должны совпадать с внешними потребителями)
const (
	StreamAnalysisRequests  = "stream:analysis:requests"
	StreamAnalysisResponses = "stream:analysis:responses"
)

// AnalysisRequestEvent - входящий конверт запроса анализа
type AnalysisRequestEvent struct {
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AnalysisResponseEvent - конверт ответа анализа
type AnalysisResponseEvent struct {
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
