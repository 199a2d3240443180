//go:build ignore
// +build ignore

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type AnalysisRequestEvent struct {
	Kind      string          `json:"kind"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	kind := flag.String("kind", "BBOX_STATS", "Request kind to publish (STATS, BBOX_STATS, QUERY)")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	// Проверка подключения
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Тестовый запрос (центр Пекина)
	var payload json.RawMessage
	switch *kind {
	case "STATS":
		payload = nil
	case "QUERY":
		payload = json.RawMessage(`{"bbox":[116.30,39.85,116.50,39.95],"zoom":12,"groups":["food","medical"]}`)
	default:
		payload = json.RawMessage(`{"bbox":[116.30,39.85,116.50,39.95]}`)
	}

	event := AnalysisRequestEvent{
		Kind:      *kind,
		RequestID: uuid.NewString(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// Публикация в стрим
	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: "stream:analysis:requests",
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("✅ Request published successfully!\n")
	fmt.Printf("   Stream: stream:analysis:requests\n")
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Kind: %s\n", event.Kind)
	fmt.Printf("   Request ID: %s\n", event.RequestID)

	// Ожидание ответа
	fmt.Printf("\n⏳ Waiting for response in stream:analysis:responses...\n")

	timeout := time.After(30 * time.Second)
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			fmt.Println("❌ Timeout waiting for response")
			return
		case <-ticker.C:
			results, err := client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{"stream:analysis:responses", "0"},
				Count:   10,
				Block:   0,
			}).Result()

			if err != nil && err != redis.Nil {
				continue
			}

			for _, stream := range results {
				for _, msg := range stream.Messages {
					dataStr, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}

					var response map[string]interface{}
					if err := json.Unmarshal([]byte(dataStr), &response); err != nil {
						continue
					}

					if reqID, ok := response["request_id"].(string); ok {
						if reqID == event.RequestID {
							fmt.Printf("\n✅ Response received!\n")
							prettyJSON, _ := json.MarshalIndent(response, "", "  ")
							fmt.Printf("%s\n", prettyJSON)
							return
						}
					}
				}
			}
		}
	}
}
