package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/service"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
	"github.com/noah-isme/maktab-fin-api/pkg/response"
)

type tariffService interface {
	List(ctx context.Context) ([]models.TariffVersion, error)
	UpdateSettings(ctx context.Context, req service.UpdateTariffRequest, asOf time.Time) (*models.TariffVersion, error)
	Rollback(ctx context.Context, versionID string, asOf time.Time) (*models.TariffVersion, error)
}

// TariffHandler exposes tariff version endpoints.
type TariffHandler struct {
	service tariffService
}

// NewTariffHandler builds a new handler.
func NewTariffHandler(service tariffService) *TariffHandler {
	return &TariffHandler{service: service}
}

// List godoc
// @Summary Tariff version history
// @Tags Tariffs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tariffs [get]
func (h *TariffHandler) List(c *gin.Context) {
	versions, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Update godoc
// @Summary Change tariff settings, effective next month
// @Tags Tariffs
// @Accept json
// @Produce json
// @Param payload body service.UpdateTariffRequest true "Tariff settings"
// @Success 201 {object} response.Envelope
// @Router /tariffs [post]
func (h *TariffHandler) Update(c *gin.Context) {
	var req service.UpdateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid tariff payload"))
		return
	}
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := h.service.UpdateSettings(c.Request.Context(), req, asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// Rollback godoc
// @Summary Re-activate an archived tariff version
// @Tags Tariffs
// @Produce json
// @Param id path string true "Version ID"
// @Success 201 {object} response.Envelope
// @Router /tariffs/{id}/rollback [post]
func (h *TariffHandler) Rollback(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	version, err := h.service.Rollback(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}
