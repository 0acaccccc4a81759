package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

const (
	outboxStatusPending = "pending"
	outboxStatusFailed  = "failed"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	seq        int64
	createdAt  time.Time
	updatedAt  time.Time
}

// outboxRepositoryInMemory: in-memory хранилище transactional outbox.
type outboxRepositoryInMemory struct {
	store *Store
	tx    *state
}

// NewOutboxRepository создаёт in-memory outbox, работающий вне единицы работы.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepositoryInMemory{store: store}
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его идентификатор.
func (r *outboxRepositoryInMemory) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)

	err := r.store.write(r.tx, func(st *state) error {
		now := time.Now().UTC()
		put(st, st.outbox, msg.ID, outboxRecord{
			msg:       msg,
			status:    outboxStatusPending,
			seq:       st.nextOutboxSeq(),
			createdAt: now,
			updatedAt: now,
		})
		return nil
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return msg, nil
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке постановки.
func (r *outboxRepositoryInMemory) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var records []outboxRecord
	_ = r.store.read(r.tx, func(st *state) error {
		for _, rec := range st.outbox {
			if rec.status == outboxStatusPending {
				records = append(records, rec)
			}
		}
		return nil
	})

	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	if len(records) > limit {
		records = records[:limit]
	}

	result := make([]domain.OutboxMessage, 0, len(records))
	for _, rec := range records {
		result = append(result, rec.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого ожидающего сообщения.
func (r *outboxRepositoryInMemory) Stats(ctx context.Context) (domain.OutboxStats, error) {
	var stats domain.OutboxStats
	_ = r.store.read(r.tx, func(st *state) error {
		for _, rec := range st.outbox {
			if rec.status != outboxStatusPending {
				continue
			}
			stats.PendingCount++
			if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
				stats.OldestPendingAt = rec.createdAt
			}
		}
		return nil
	})
	return stats, nil
}

// MarkSent удаляет опубликованное событие: in-memory outbox хранит только backlog.
func (r *outboxRepositoryInMemory) MarkSent(ctx context.Context, id string) error {
	return r.store.write(r.tx, func(st *state) error {
		if _, ok := st.outbox[id]; !ok {
			return domain.ErrOutboxPublish
		}
		remove(st, st.outbox, id)
		return nil
	})
}

// MarkFailed фиксирует ошибку публикации.
func (r *outboxRepositoryInMemory) MarkFailed(ctx context.Context, id string) error {
	return r.mark(id, outboxStatusFailed)
}

func (r *outboxRepositoryInMemory) mark(id, status string) error {
	return r.store.write(r.tx, func(st *state) error {
		record, ok := st.outbox[id]
		if !ok {
			return domain.ErrOutboxPublish
		}
		record.status = status
		record.attemptCnt++
		record.updatedAt = time.Now().UTC()
		put(st, st.outbox, id, record)
		return nil
	})
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
