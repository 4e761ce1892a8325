package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/ims/internal/domain"
)

func productSoldMessage(id, productID string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "product",
		AggregateID:   productID,
		EventType:     "product.sold",
		Payload:       []byte(`{"productId":"` + productID + `","quantity":2}`),
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{productSoldMessage("msg-1", "prod-1")},
	}
	publisher := &fakePublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	worker.ProcessOnce(context.Background())

	if got := len(repo.sentIDs); got != 1 {
		t.Fatalf("expected 1 sent mark, got %d", got)
	}
	if repo.sentIDs[0] != "msg-1" {
		t.Fatalf("expected sent id msg-1, got %s", repo.sentIDs[0])
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{productSoldMessage("msg-2", "prod-2")},
	}
	publisher := &fakePublisher{err: errors.New("broker unavailable")}
	dlqPublisher := &fakePublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 0 {
		t.Fatalf("expected 0 sent marks, got %d", got)
	}
	if got := len(repo.failedIDs); got != 1 {
		t.Fatalf("expected 1 failed mark, got %d", got)
	}
	if repo.failedIDs[0] != "msg-2" {
		t.Fatalf("expected failed id msg-2, got %s", repo.failedIDs[0])
	}
	if got := dlqPublisher.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}
}

func TestWorker_DLQEnvelopeWrapsOriginalPayload(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{productSoldMessage("msg-7", "prod-7")},
	}
	publisher := &fakePublisher{err: errors.New("partition leader lost")}
	dlqPublisher := &fakePublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(2),
	)

	worker.ProcessOnce(context.Background())

	received := dlqPublisher.received()
	if len(received) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(received))
	}

	var envelope struct {
		OutboxID     string          `json:"outbox_id"`
		EventType    string          `json:"event_type"`
		Payload      json.RawMessage `json:"payload"`
		PublishError string          `json:"publish_error"`
	}
	if err := json.Unmarshal(received[0].Payload, &envelope); err != nil {
		t.Fatalf("failed to decode DLQ envelope: %v", err)
	}

	if envelope.OutboxID != "msg-7" {
		t.Errorf("expected outbox_id msg-7, got %s", envelope.OutboxID)
	}
	if envelope.EventType != "product.sold" {
		t.Errorf("expected event_type product.sold, got %s", envelope.EventType)
	}
	if envelope.PublishError == "" {
		t.Error("expected publish_error to be recorded")
	}

	var inner struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.Unmarshal(envelope.Payload, &inner); err != nil {
		t.Fatalf("failed to decode nested payload: %v", err)
	}
	if inner.ProductID != "prod-7" || inner.Quantity != 2 {
		t.Errorf("unexpected nested payload: %+v", inner)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{
		pending: []domain.OutboxMessage{productSoldMessage("msg-3", "prod-3")},
	}
	publisher := &fakePublisher{
		sequenceErrors: []error{
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			nil,
		},
	}

	worker := NewWorker(
		repo,
		publisher,
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)

	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 1 {
		t.Fatalf("expected 1 sent mark, got %d", got)
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
}

func TestWorker_BackoffDelayDoubles(t *testing.T) {
	t.Parallel()

	worker := NewWorker(
		&fakeOutboxRepo{},
		&fakePublisher{},
		WithRetryBaseDelay(50*time.Millisecond),
	)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := worker.backoffDelay(tc.attempt); got != tc.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}

	zeroDelay := NewWorker(&fakeOutboxRepo{}, &fakePublisher{}, WithRetryBaseDelay(0))
	if got := zeroDelay.backoffDelay(2); got != 0 {
		t.Errorf("expected zero backoff with zero base delay, got %v", got)
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{}
	publisher := &fakePublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

type fakeOutboxRepo struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (f *fakeOutboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (f *fakeOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 || limit >= len(f.pending) {
		return append([]domain.OutboxMessage(nil), f.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), f.pending[:limit]...), nil
}

func (f *fakeOutboxRepo) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{
		PendingCount: len(f.pending),
	}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutboxRepo) MarkSent(id string) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(id string) error {
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

type fakePublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	messages       []domain.OutboxMessage
}

func (f *fakePublisher) Publish(msg domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	if len(f.sequenceErrors) > 0 {
		err := f.sequenceErrors[0]
		f.sequenceErrors = f.sequenceErrors[1:]
		if err != nil {
			return err
		}
		f.messages = append(f.messages, msg)
		return nil
	}
	if f.err != nil {
		return f.err
	}

	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func (f *fakePublisher) received() []domain.OutboxMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.OutboxMessage(nil), f.messages...)
}

var _ domain.OutboxRepository = (*fakeOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*fakePublisher)(nil)
