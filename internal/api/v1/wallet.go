package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gymlane/gymlane/internal/api/dto"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/logger"
	"github.com/gymlane/gymlane/internal/service"
)

type WalletHandler struct {
	service service.WalletService
	log     *logger.Logger
}

func NewWalletHandler(service service.WalletService, log *logger.Logger) *WalletHandler {
	return &WalletHandler{service: service, log: log}
}

// @Summary Get location wallet
// @Description Get a location's wallet with recent usage
// @Tags Wallets
// @Produce json
// @Param id path string true "Location ID"
// @Success 200 {object} dto.WalletResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /locations/{id}/wallet [get]
func (h *WalletHandler) GetWallet(c *gin.Context) {
	locationID := c.Param("id")
	if locationID == "" {
		c.Error(ierr.NewError("location ID is required").
			WithHint("Please provide a valid location ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetByLocation(c.Request.Context(), locationID)
	if err != nil {
		h.log.Error("Failed to get wallet", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Top up wallet
// @Description Credit a location's wallet
// @Tags Wallets
// @Accept json
// @Produce json
// @Param id path string true "Location ID"
// @Param request body dto.TopUpWalletRequest true "Top Up Request"
// @Success 200 {object} dto.WalletResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /locations/{id}/wallet/top-up [post]
func (h *WalletHandler) TopUpWallet(c *gin.Context) {
	locationID := c.Param("id")
	if locationID == "" {
		c.Error(ierr.NewError("location ID is required").
			WithHint("Please provide a valid location ID").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.TopUpWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.TopUp(c.Request.Context(), locationID, &req)
	if err != nil {
		h.log.Error("Failed to top up wallet", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
