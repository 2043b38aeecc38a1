//go:build integration

package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"
)

func skipWithoutNATS(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}
	return url
}

func TestIntegration_PubSub(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	ctx := context.Background()
	logger := slog.Default()

	client, err := NewClient(ctx, natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	received := make(chan ImportCompleted, 1)

	err = client.Subscribe(SubjectImportCompleted, "", func(subject string, data []byte) {
		var evt ImportCompleted
		json.Unmarshal(data, &evt)
		received <- evt
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// Give subscription time to propagate
	time.Sleep(100 * time.Millisecond)

	err = client.Publish(SubjectImportCompleted, ImportCompleted{ImportID: "imp-1", Messages: 42})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case evt := <-received:
		if evt.ImportID != "imp-1" || evt.Messages != 42 {
			t.Errorf("unexpected event %+v", evt)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestIntegration_QueueGroup(t *testing.T) {
	natsURL := skipWithoutNATS(t)
	logger := slog.Default()

	client, err := NewClient(context.Background(), natsURL, os.Getenv("NATS_TOKEN"), logger)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	hits := make(chan string, 4)
	for i := 0; i < 2; i++ {
		if err := client.Subscribe(SubjectImportRequested, "rapport-test", func(subject string, data []byte) {
			hits <- subject
		}); err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(SubjectImportRequested, ImportRequested{RelationshipID: "rel-1"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case <-hits:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	select {
	case <-hits:
		t.Error("queue group delivered the message twice")
	case <-time.After(300 * time.Millisecond):
	}
}
