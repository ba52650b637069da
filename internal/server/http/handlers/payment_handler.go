package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/server/http/dto"
)

const maxCallbackBody = 1 << 20

// PaymentHandler manages payment endpoints.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Pay handles POST /payments. A repeated submission answers 200 with the
// existing payment instead of 201.
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	payment, created, err := h.facade.Pay(c.Request.Context(), CurrentUserID(c), model.PaymentRequest{
		OrderNumber: req.OrderNumber,
		Method:      model.PaymentMethod(strings.ToUpper(req.Method)),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Details:     req.Details,
	})
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentInProgress) && payment != nil {
			existing := toPaymentResponse(payment)
			c.AbortWithStatusJSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error(), Payment: &existing})
			return
		}
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, toPaymentResponse(payment))
}

// Get handles GET /payments/:transactionId.
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.facade.Payment(c.Request.Context(), CurrentPrincipal(c), c.Param("transactionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// Refund handles POST /payments/:transactionId/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	payment, err := h.facade.Refund(c.Request.Context(), CurrentPrincipal(c), c.Param("transactionId"), req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}

// Callback handles POST /payments/callbacks/:method sent by providers.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody))
	if err != nil || len(body) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "empty callback body"})
		return
	}

	method := model.PaymentMethod(strings.ToUpper(strings.ReplaceAll(c.Param("method"), "-", "_")))
	payment, err := h.facade.HandleCallback(c.Request.Context(), method, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(payment))
}
