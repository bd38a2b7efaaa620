package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gymlane/gymlane/internal/api/dto"
	"github.com/gymlane/gymlane/internal/domain/invoice"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/service"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, log: log}
}

// @Summary Create invoice
// @Description Create a draft invoice with its pending ledger entry
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice body dto.CreateInvoiceRequest true "Invoice Request"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to create invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get invoice
// @Description Get an invoice by ID with its line items
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List invoices
// @Description Get invoices with optional filtering
// @Tags Invoices
// @Produce json
// @Param member_id query string false "Member ID"
// @Param location_id query string false "Location ID"
// @Param subscription_id query string false "Subscription ID"
// @Param statuses query string false "Comma-separated invoice statuses"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	filter := &invoice.ListFilter{
		MemberID:       c.Query("member_id"),
		LocationID:     c.Query("location_id"),
		SubscriptionID: c.Query("subscription_id"),
	}
	if statuses := c.Query("statuses"); statuses != "" {
		filter.Statuses = strings.Split(statuses, ",")
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	resp, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("Failed to list invoices", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Preview invoice
// @Description Compute a charge breakdown without persisting anything
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body dto.PreviewInvoiceRequest true "Preview Request"
// @Success 200 {object} dto.PreviewInvoiceResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /invoices/preview [post]
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	var req dto.PreviewInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Preview(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to preview invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Send invoice
// @Description Issue a draft invoice; charges immediately when collected automatically
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Send(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to send invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Mark invoice paid
// @Description Settle a sent invoice against an out-of-band payment
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body dto.MarkInvoicePaidRequest true "Mark Paid Request"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /invoices/{id}/mark-paid [post]
func (h *InvoiceHandler) MarkInvoicePaid(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.MarkInvoicePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.MarkPaid(c.Request.Context(), id, &req)
	if err != nil {
		h.log.Error("Failed to mark invoice paid", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Void invoice
// @Description Void a draft or sent invoice and fail its pending ledger entry
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.ErrorResponse
// @Router /invoices/{id}/void [post]
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.Void(c.Request.Context(), id); err != nil {
		h.log.Error("Failed to void invoice", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "voided"})
}
