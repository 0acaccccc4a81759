package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one product")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrProductIDRequired = errors.New("product id is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("product quantity must be greater than zero")
	// Ошибка повторяющегося товара в одном запросе.
	ErrDuplicateProduct = errors.New("product is listed more than once")
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего email клиента.
	ErrCustomerEmailRequired = errors.New("customer email is required")
	// Ошибка отсутствующего названия товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка, если цена товара отрицательная.
	ErrProductPriceInvalid = errors.New("product price must be non-negative")
	// Ошибка, если остаток товара отрицательный.
	ErrProductQtyInvalid = errors.New("product quantity must be non-negative")
	// Сумма заказа не помещается в int64 минимальных единиц.
	ErrOrderAmountOverflow = errors.New("order amount is out of range")

	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer does not exist")
	// ErrProductSetMismatch: хотя бы один товар из запроса не найден.
	ErrProductSetMismatch = errors.New("some products do not exist")
	// ErrInsufficientStock: остатка товара не хватает для заказа.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrCustomerEmailTaken: email уже занят другим клиентом.
	ErrCustomerEmailTaken = errors.New("customer email is already used")
	// ErrProductNameTaken: товар с таким названием уже существует.
	ErrProductNameTaken = errors.New("product name is already used")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден в репозитории.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderAlreadyExists сигнализирует о повторном ID заказа.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrStockConflict: остаток изменился между чтением и записью; операцию можно повторить.
	ErrStockConflict = errors.New("product stock changed concurrently")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError описывает позицию, для которой не хватило остатка.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int32
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient quantity for product %s", e.ProductName)
}

// Unwrap позволяет сравнивать ошибку с ErrInsufficientStock через errors.Is.
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// CodedError: ошибка, восстановленная по сохранённому коду (например, из кэша идемпотентности).
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string {
	return e.Message
}

// Стабильные коды ошибок для транспорта и кэша идемпотентности.
const (
	CodeInvalidArgument    = "invalid_argument"
	CodeCustomerNotFound   = "customer_not_found"
	CodeProductSetMismatch = "product_set_mismatch"
	CodeInsufficientStock  = "insufficient_stock"
	CodeNotFound           = "not_found"
	CodeAlreadyExists      = "already_exists"
	CodeConflict           = "conflict"
	CodeInternal           = "internal"
)

var validationErrors = []error{
	ErrCustomerRequired,
	ErrItemsRequired,
	ErrProductIDRequired,
	ErrItemQtyInvalid,
	ErrDuplicateProduct,
	ErrCustomerNameRequired,
	ErrCustomerEmailRequired,
	ErrProductNameRequired,
	ErrProductPriceInvalid,
	ErrProductQtyInvalid,
	ErrOrderAmountOverflow,
}

// IsValidation проверяет, что ошибка относится к валидации входных данных.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsStockConflict проверяет, является ли ошибка конфликтом остатков.
func IsStockConflict(err error) bool {
	return errors.Is(err, ErrStockConflict)
}

// ErrorCode сопоставляет ошибку со стабильным кодом.
func ErrorCode(err error) string {
	var coded *CodedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &coded):
		return coded.Code
	case IsValidation(err):
		return CodeInvalidArgument
	case errors.Is(err, ErrCustomerNotFound):
		return CodeCustomerNotFound
	case errors.Is(err, ErrProductSetMismatch):
		return CodeProductSetMismatch
	case errors.Is(err, ErrInsufficientStock):
		return CodeInsufficientStock
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrProductNotFound):
		return CodeNotFound
	case errors.Is(err, ErrCustomerEmailTaken), errors.Is(err, ErrProductNameTaken), errors.Is(err, ErrOrderAlreadyExists),
		errors.Is(err, ErrIdempotencyHashMismatch):
		return CodeAlreadyExists
	case errors.Is(err, ErrIdempotencyKeyRequired):
		return CodeInvalidArgument
	case errors.Is(err, ErrStockConflict), errors.Is(err, ErrIdempotencyInProgress):
		return CodeConflict
	default:
		return CodeInternal
	}
}
