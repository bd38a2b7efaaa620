package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymlane/gymlane/internal/api/dto"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/service"
	"github.com/gymlane/gymlane/internal/types"
)

type PromoHandler struct {
	service service.PromoService
	log     *logger.Logger
}

func NewPromoHandler(service service.PromoService, log *logger.Logger) *PromoHandler {
	return &PromoHandler{service: service, log: log}
}

// @Summary Create promo
// @Description Create a new promo code for the current location
// @Tags Promos
// @Accept json
// @Produce json
// @Param promo body dto.CreatePromoRequest true "Promo Request"
// @Success 201 {object} dto.PromoResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /promos [post]
func (h *PromoHandler) CreatePromo(c *gin.Context) {
	var req dto.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to create promo", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get promo
// @Description Get a promo by ID
// @Tags Promos
// @Produce json
// @Param id path string true "Promo ID"
// @Success 200 {object} dto.PromoResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /promos/{id} [get]
func (h *PromoHandler) GetPromo(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("promo ID is required").
			WithHint("Please provide a valid promo ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get promo", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List promos
// @Description List promos for the current location
// @Tags Promos
// @Produce json
// @Success 200 {object} dto.ListPromosResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /promos [get]
func (h *PromoHandler) ListPromos(c *gin.Context) {
	locationID := c.Query("location_id")
	if locationID == "" {
		locationID = types.GetLocationID(c.Request.Context())
	}

	resp, err := h.service.List(c.Request.Context(), locationID)
	if err != nil {
		h.log.Error("Failed to list promos", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Validate promo
// @Description Check whether a promo code can be applied to a pricing
// @Tags Promos
// @Accept json
// @Produce json
// @Param request body dto.ValidatePromoRequest true "Validate Request"
// @Success 200 {object} dto.ValidatePromoResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /promos/validate [post]
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	var req dto.ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Validate(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to validate promo", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Archive promo
// @Description Deactivate a promo; existing redemptions keep their discounts
// @Tags Promos
// @Produce json
// @Param id path string true "Promo ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.ErrorResponse
// @Router /promos/{id} [delete]
func (h *PromoHandler) ArchivePromo(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("promo ID is required").
			WithHint("Please provide a valid promo ID").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.Archive(c.Request.Context(), id); err != nil {
		h.log.Error("Failed to archive promo", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}
