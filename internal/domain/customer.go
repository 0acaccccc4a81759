package domain

import (
	"strings"
	"time"
)

// Customer: покупатель, от имени которого создаются заказы.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля клиента.
func (c *Customer) Validate() []error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if strings.TrimSpace(c.Email) == "" {
		errs = append(errs, ErrCustomerEmailRequired)
	}
	return errs
}
