package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/gophercheckout/internal/adapter/gateway"
	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	pkgAuth "github.com/polkiloo/gophercheckout/internal/pkg/auth"
	"github.com/polkiloo/gophercheckout/internal/server/http/dto"
	"github.com/polkiloo/gophercheckout/internal/server/http/middleware"
)

const moneyScale = 2

// CurrentPrincipal extracts the authenticated caller from context.
func CurrentPrincipal(c *gin.Context) pkgAuth.Principal {
	val, ok := c.Get(middleware.PrincipalContextKey)
	if !ok {
		return pkgAuth.Principal{}
	}
	p, _ := val.(pkgAuth.Principal)
	return p
}

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	return CurrentPrincipal(c).UserID
}

func statusFor(err error) int {
	var transient *gateway.TransientError
	var auth *gateway.AuthError
	var status *gateway.StatusError
	switch {
	case errors.Is(err, domainErrors.ErrValidation),
		errors.Is(err, domainErrors.ErrEmptyCart),
		errors.Is(err, domainErrors.ErrInvalidCart),
		errors.Is(err, domainErrors.ErrAddressNotOwned),
		errors.Is(err, domainErrors.ErrAmountMismatch),
		errors.Is(err, domainErrors.ErrUnsupportedMethod),
		errors.Is(err, gateway.ErrMalformedResponse):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInsufficientStock),
		errors.Is(err, domainErrors.ErrInvalidStateTransition),
		errors.Is(err, domainErrors.ErrRefundExceedsAmount),
		errors.Is(err, domainErrors.ErrPaymentInProgress),
		errors.Is(err, domainErrors.ErrStateConflict),
		errors.Is(err, domainErrors.ErrAlreadyExists):
		return http.StatusConflict
	case errors.As(err, &transient), errors.As(err, &auth), errors.As(err, &status):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to status codes. Internal failures are not
// described to the client.
func writeError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = http.StatusText(code)
	}
	c.AbortWithStatusJSON(code, dto.ErrorResponse{Error: msg})
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(moneyScale),
		})
	}
	return dto.OrderResponse{
		Number:      order.Number,
		Status:      string(order.Status),
		AddressID:   order.AddressID,
		Items:       items,
		Currency:    order.Currency,
		Subtotal:    order.Totals.Subtotal.StringFixed(moneyScale),
		Tax:         order.Totals.Tax.StringFixed(moneyScale),
		Shipping:    order.Totals.Shipping.StringFixed(moneyScale),
		Total:       order.Totals.Total.StringFixed(moneyScale),
		CreatedAt:   order.CreatedAt,
		DeliveredAt: order.DeliveredAt,
	}
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		TransactionID: p.TransactionID,
		Method:        string(p.Method),
		Status:        string(p.Status),
		Amount:        p.Amount.StringFixed(moneyScale),
		Currency:      p.Currency,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.GatewayReference != nil {
		resp.GatewayReference = *p.GatewayReference
	}
	if p.FailureReason != nil {
		resp.FailureReason = *p.FailureReason
	}
	if p.RefundAmount != nil {
		resp.RefundedAmount = p.RefundAmount.StringFixed(moneyScale)
	}
	return resp
}
