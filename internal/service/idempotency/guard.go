package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/metrics"
)

const defaultKeyTTL = 24 * time.Hour

// Исходы запроса с ключом идемпотентности.
const (
	OutcomeFresh    = "fresh"
	OutcomeReplayed = "replayed"
	OutcomeConflict = "conflict"
	OutcomeReleased = "released"
)

// failurePayload хранит ошибку первого выполнения.
type failurePayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GuardOption настраивает Guard.
type GuardOption func(*Guard)

// WithKeyTTL задаёт время жизни ключа.
func WithKeyTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithGuardLogger задаёт logger.
func WithGuardLogger(logger *log.Entry) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardMetrics задаёт метрики исходов запросов.
func WithGuardMetrics(m *metrics.IdempotencyMetrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

// Guard выполняет операцию не более одного раза на ключ и воспроизводит её результат при повторе.
// Успех и детерминированные ошибки кэшируются; внутренние ошибки и конфликты остатков
// освобождают ключ, чтобы клиент мог повторить запрос.
type Guard struct {
	repo    domain.IdempotencyRepository
	ttl     time.Duration
	logger  *log.Entry
	metrics *metrics.IdempotencyMetrics
	now     func() time.Time
}

// NewGuard создаёт Guard поверх репозитория ключей.
func NewGuard(repo domain.IdempotencyRepository, options ...GuardOption) *Guard {
	g := &Guard{
		repo:   repo,
		ttl:    defaultKeyTTL,
		logger: log.WithField("component", "idempotency-guard"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Do выполняет fn под ключом key. Пустой ключ отключает идемпотентность.
// replayed=true означает, что результат взят из кэша без повторного выполнения.
func (g *Guard) Do(ctx context.Context, key, requestHash string, fn func(ctx context.Context) ([]byte, error)) (body []byte, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" || g == nil || g.repo == nil {
		body, err = fn(ctx)
		return body, false, err
	}

	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().Add(g.ttl))
	if err != nil {
		return g.replay(key, record, err)
	}
	g.metrics.RecordRequest(OutcomeFresh)

	body, runErr := fn(ctx)
	if runErr != nil {
		g.storeFailure(ctx, key, runErr)
		return nil, false, runErr
	}

	if err := g.repo.MarkDone(ctx, key, body, http.StatusOK); err != nil {
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent success response")
	}
	return body, false, nil
}

func (g *Guard) replay(key string, record domain.IdempotencyRecord, createErr error) ([]byte, bool, error) {
	switch {
	case errors.Is(createErr, domain.ErrIdempotencyHashMismatch):
		g.metrics.RecordRequest(OutcomeConflict)
		return nil, false, domain.ErrIdempotencyHashMismatch
	case errors.Is(createErr, domain.ErrIdempotencyKeyAlreadyExists):
	default:
		return nil, false, fmt.Errorf("create idempotency record: %w", createErr)
	}

	switch record.Status {
	case domain.IdempotencyStatusDone:
		g.metrics.RecordRequest(OutcomeReplayed)
		return record.ResponseBody, true, nil
	case domain.IdempotencyStatusFailed:
		g.metrics.RecordRequest(OutcomeReplayed)
		return nil, true, decodeFailure(record)
	case domain.IdempotencyStatusProcessing:
		g.metrics.RecordRequest(OutcomeConflict)
		return nil, false, domain.ErrIdempotencyInProgress
	default:
		return nil, false, fmt.Errorf("unknown idempotency status %q for key %s", record.Status, key)
	}
}

func (g *Guard) storeFailure(ctx context.Context, key string, runErr error) {
	code := domain.ErrorCode(runErr)
	logger := g.logger.WithField("idempotency_key", key)

	if code == domain.CodeInternal || code == domain.CodeConflict {
		// Контекст запроса мог быть отменён, поэтому ключ освобождается независимо от него.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := g.repo.Delete(releaseCtx, key); err != nil {
			logger.WithError(err).Warn("failed to release idempotency key")
			return
		}
		g.metrics.RecordRequest(OutcomeReleased)
		return
	}

	payload, err := json.Marshal(failurePayload{Code: code, Message: runErr.Error()})
	if err != nil {
		logger.WithError(err).Warn("failed to encode idempotency failure payload")
		payload = nil
	}
	if err := g.repo.MarkFailed(ctx, key, payload, statusForCode(code)); err != nil {
		logger.WithError(err).Warn("failed to store idempotency failure response")
	}
}

func decodeFailure(record domain.IdempotencyRecord) error {
	var payload failurePayload
	if len(record.ResponseBody) > 0 && json.Unmarshal(record.ResponseBody, &payload) == nil && payload.Code != "" {
		if payload.Message == "" {
			payload.Message = "previous request with the same idempotency key failed"
		}
		return &domain.CodedError{Code: payload.Code, Message: payload.Message}
	}
	return &domain.CodedError{Code: domain.CodeInternal, Message: "previous request with the same idempotency key failed"}
}

// statusForCode сохраняет HTTP-эквивалент кода для диагностики в таблице ключей.
func statusForCode(code string) int {
	switch code {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeCustomerNotFound, domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeProductSetMismatch, domain.CodeInsufficientStock, domain.CodeAlreadyExists, domain.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HashRequest строит отпечаток запроса: sha256 от имени операции и JSON тела.
func HashRequest(operation string, req any) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(operation))
	h.Write([]byte{':'})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
