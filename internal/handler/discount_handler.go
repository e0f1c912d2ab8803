package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/service"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
	"github.com/noah-isme/maktab-fin-api/pkg/response"
)

type discountService interface {
	Create(ctx context.Context, studentID string, req service.CreateDiscountRequest) (*models.Discount, error)
	Deactivate(ctx context.Context, discountID string, req service.DeactivateDiscountRequest) error
}

// DiscountHandler exposes discount endpoints.
type DiscountHandler struct {
	service discountService
}

// NewDiscountHandler builds a new handler.
func NewDiscountHandler(service discountService) *DiscountHandler {
	return &DiscountHandler{service: service}
}

// Create godoc
// @Summary Grant a discount to a student
// @Tags Discounts
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.CreateDiscountRequest true "Discount"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/discounts [post]
func (h *DiscountHandler) Create(c *gin.Context) {
	var req service.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discount payload"))
		return
	}
	discount, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, discount)
}

// Deactivate godoc
// @Summary Deactivate a discount with a reason
// @Tags Discounts
// @Accept json
// @Produce json
// @Param id path string true "Discount ID"
// @Param payload body service.DeactivateDiscountRequest true "Reason"
// @Success 204
// @Router /discounts/{id}/deactivate [post]
func (h *DiscountHandler) Deactivate(c *gin.Context) {
	var req service.DeactivateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid deactivation payload"))
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
