package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// state хранит всё содержимое in-memory хранилища.
// Внутри единицы работы изменения пишутся на месте, а undo собирает операции отката.
type state struct {
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]domain.Order
	movements map[string][]domain.StockMovement
	outbox    map[string]outboxRecord
	outboxSeq int64

	journaling bool
	undo       []func()
}

func newState() *state {
	return &state{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]domain.Order),
		movements: make(map[string][]domain.StockMovement),
		outbox:    make(map[string]outboxRecord),
	}
}

func (s *state) begin() {
	s.journaling = true
	s.undo = s.undo[:0]
}

func (s *state) commit() {
	s.journaling = false
	clear(s.undo)
	s.undo = s.undo[:0]
}

// rollback применяет операции отката в обратном порядке.
func (s *state) rollback() {
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.commit()
}

func (s *state) record(op func()) {
	if s.journaling {
		s.undo = append(s.undo, op)
	}
}

// put записывает значение и запоминает прежнее для отката.
// Срезы движений дописываются через append: после отката прежний срез
// не видит элементов за своей длиной.
func put[V any](st *state, m map[string]V, key string, value V) {
	if old, ok := m[key]; ok {
		st.record(func() { m[key] = old })
	} else {
		st.record(func() { delete(m, key) })
	}
	m[key] = value
}

func remove[V any](st *state, m map[string]V, key string) {
	if old, ok := m[key]; ok {
		st.record(func() { m[key] = old })
		delete(m, key)
	}
}

func (s *state) nextOutboxSeq() int64 {
	prev := s.outboxSeq
	s.record(func() { s.outboxSeq = prev })
	s.outboxSeq++
	return s.outboxSeq
}

// Store: in-memory хранилище для локальной разработки и тестов.
// Единица работы выполняется под эксклюзивной блокировкой; при ошибке её
// изменения откатываются, так что стоимость Do зависит только от объёма изменений.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

// Do реализует domain.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state
	tx.begin()
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(ctx, s.bind(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	committed = true
	return nil
}

// Ping всегда успешен, пока контекст жив.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Repositories возвращает репозитории, работающие вне единицы работы.
func (s *Store) Repositories() domain.Repositories {
	return s.bind(nil)
}

func (s *Store) bind(tx *state) domain.Repositories {
	return domain.Repositories{
		Customers: &customerRepositoryInMemory{store: s, tx: tx},
		Products:  &productRepositoryInMemory{store: s, tx: tx},
		Orders:    &orderRepositoryInMemory{store: s, tx: tx},
		Movements: &stockMovementRepositoryInMemory{store: s, tx: tx},
		Outbox:    &outboxRepositoryInMemory{store: s, tx: tx},
	}
}

// read выполняет fn на состоянии транзакции или под read-lock.
func (s *Store) read(tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// write выполняет fn на состоянии транзакции или под write-lock.
// fn обязана проверить все условия до первой мутации.
func (s *Store) write(tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

var _ domain.UnitOfWork = (*Store)(nil)
