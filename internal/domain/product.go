package domain

import (
	"strings"
	"time"
)

// Product описывает товар каталога и его текущий остаток на складе.
type Product struct {
	ID   string
	Name string
	// PriceMinor: цена за единицу в минимальных денежных единицах (например, центы).
	PriceMinor int64
	// Quantity: доступный остаток.
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет базовые инварианты товара.
func (p *Product) Validate() []error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrProductPriceInvalid)
	}
	if p.Quantity < 0 {
		errs = append(errs, ErrProductQtyInvalid)
	}
	return errs
}

// ProductQuantity: новое значение остатка товара.
// Expected хранит остаток, от которого считалось новое значение: обновление
// применяется только если остаток в хранилище всё ещё равен Expected.
type ProductQuantity struct {
	ID       string
	Quantity int32
	Expected int32
}
