// Package httpapi публикует сервис заказов по HTTP/JSON; ошибки отдаются как RFC 7807 Problem Details.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

// ContentTypeProblemJSON: media type ответов Problem Details.
const ContentTypeProblemJSON = "application/problem+json"

// ProblemDetail: ответ об ошибке по RFC 7807.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Code: стабильный код доменной ошибки.
	Code       string         `json:"code,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return p.Title + ": " + p.Detail
	}
	return p.Title
}

// WithDetail возвращает копию с заполненным detail.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension возвращает копию с дополнительным полем extensions.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

// Типы проблем: относительные URI, Responder может дополнить их BaseURI.
const (
	TypeValidation         = "/problems/validation-error"
	TypeBadRequest         = "/problems/bad-request"
	TypeCustomerNotFound   = "/problems/customer-not-found"
	TypeProductSetMismatch = "/problems/product-set-mismatch"
	TypeInsufficientStock  = "/problems/insufficient-stock"
	TypeNotFound           = "/problems/not-found"
	TypeAlreadyExists      = "/problems/already-exists"
	TypeConflict           = "/problems/conflict"
	TypeInternal           = "/problems/internal-error"
)

var (
	problemValidation = ProblemDetail{Type: TypeValidation, Title: "Validation Error", Status: http.StatusBadRequest, Code: domain.CodeInvalidArgument}
	problemBadRequest = ProblemDetail{Type: TypeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest, Code: domain.CodeInvalidArgument}
	problemCustomer   = ProblemDetail{Type: TypeCustomerNotFound, Title: "Customer Not Found", Status: http.StatusNotFound, Code: domain.CodeCustomerNotFound}
	problemProductSet = ProblemDetail{Type: TypeProductSetMismatch, Title: "Unknown Product", Status: http.StatusConflict, Code: domain.CodeProductSetMismatch}
	problemStock      = ProblemDetail{Type: TypeInsufficientStock, Title: "Insufficient Stock", Status: http.StatusConflict, Code: domain.CodeInsufficientStock}
	problemNotFound   = ProblemDetail{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound, Code: domain.CodeNotFound}
	problemExists     = ProblemDetail{Type: TypeAlreadyExists, Title: "Already Exists", Status: http.StatusConflict, Code: domain.CodeAlreadyExists}
	problemConflict   = ProblemDetail{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict, Code: domain.CodeConflict}
	problemInternal   = ProblemDetail{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError, Code: domain.CodeInternal}
	problemCanceled   = ProblemDetail{Type: TypeBadRequest, Title: "Request Canceled", Status: 499, Code: "canceled"}
	problemTimeout    = ProblemDetail{Type: TypeInternal, Title: "Request Timeout", Status: http.StatusGatewayTimeout, Code: "deadline_exceeded"}
)

// problemFor переводит ошибку сервиса в ProblemDetail.
func problemFor(err error) ProblemDetail {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		return problem
	}

	switch {
	case errors.Is(err, context.Canceled):
		return problemCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return problemTimeout
	}

	switch domain.ErrorCode(err) {
	case domain.CodeInvalidArgument:
		return problemValidation.WithDetail(err.Error())
	case domain.CodeCustomerNotFound:
		return problemCustomer.WithDetail(err.Error())
	case domain.CodeProductSetMismatch:
		return problemProductSet.WithDetail(err.Error())
	case domain.CodeInsufficientStock:
		problem := problemStock.WithDetail(err.Error())
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			problem = problem.
				WithExtension("product_id", stockErr.ProductID).
				WithExtension("requested", stockErr.Requested).
				WithExtension("available", stockErr.Available)
		}
		return problem
	case domain.CodeNotFound:
		return problemNotFound.WithDetail(err.Error())
	case domain.CodeAlreadyExists:
		return problemExists.WithDetail(err.Error())
	case domain.CodeConflict:
		return problemConflict.WithDetail(err.Error())
	default:
		// Детали внутренних ошибок наружу не отдаются.
		return problemInternal
	}
}

// Responder отправляет Problem Details.
type Responder struct {
	// BaseURI дописывается перед относительным type.
	BaseURI string
}

// Respond отвечает ProblemDetail и прерывает цепочку обработчиков.
// Если ошибка ещё не записана в контекст, туда попадает сама проблема.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if len(c.Errors) == 0 {
		_ = c.Error(problem)
	}
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// RespondError переводит ошибку в ProblemDetail и отвечает.
func (r *Responder) RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	r.Respond(c, problemFor(err))
}

// BadRequest отвечает 400 с текстом detail.
func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, problemBadRequest.WithDetail(detail))
}
