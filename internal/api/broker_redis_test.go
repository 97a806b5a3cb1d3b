package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())

	b, err := NewRedisBroker()
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}

	ch := b.Subscribe("solve-1")
	b.Publish("solve-1", SSEEvent{Type: "solve.completed", Data: map[string]any{"vehiclesUsed": 2}})

	select {
	case got := <-ch:
		if got.Type != "solve.completed" {
			t.Fatalf("type: %s", got.Type)
		}
		// JSON round trip turns numbers into float64
		if got.Data["vehiclesUsed"].(float64) != 2 {
			t.Fatalf("payload: %+v", got.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for pub/sub event")
	}
	b.Unsubscribe("solve-1", ch)
}
