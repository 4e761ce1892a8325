package domain

import "time"

// OutboxPublisher доставляет события товаров и заказов во внешний брокер.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным,
	// воркер может повторить вызов при ретраях.
	Publish(event OutboxMessage) error
}

// OutboxRepository сохраняет события в одной транзакции с изменением
// стока и отдаёт их воркеру на публикацию.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage одна запись transactional outbox.
// AggregateType ("product" или "order") определяет целевой топик.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats текущий backlog: сколько записей ждут публикации
// и как давно лежит самая старая.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
