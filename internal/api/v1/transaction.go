package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymlane/gymlane/internal/api/dto"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/service"
)

type TransactionHandler struct {
	service service.TransactionService
	log     *logger.Logger
}

func NewTransactionHandler(service service.TransactionService, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, log: log}
}

// @Summary Get transaction
// @Description Get a ledger entry by ID
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("transaction ID is required").
			WithHint("Please provide a valid transaction ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get transaction", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List subscription transactions
// @Description List the ledger entries of a subscription
// @Tags Transactions
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /subscriptions/{id}/transactions [get]
func (h *TransactionHandler) ListSubscriptionTransactions(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("subscription ID is required").
			WithHint("Please provide a valid subscription ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListBySubscription(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to list transactions", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Refund transaction
// @Description Refund a settled standalone charge, partially or in full
// @Tags Transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body dto.RefundTransactionRequest true "Refund Request"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /transactions/{id}/refund [post]
func (h *TransactionHandler) RefundTransaction(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("transaction ID is required").
			WithHint("Please provide a valid transaction ID").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.RefundTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Refund(c.Request.Context(), id, &req)
	if err != nil {
		h.log.Error("Failed to refund transaction", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
