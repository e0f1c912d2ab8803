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

type rateService interface {
	CreateTeacherRate(ctx context.Context, req service.CreateRateRequest) (*models.PayRate, error)
	CreateSubjectDefaultRate(ctx context.Context, req service.CreateRateRequest) (*models.PayRate, error)
	Resolve(ctx context.Context, teacherID, subjectID string, onDate time.Time) (*models.PayRate, error)
}

// RateHandler exposes pay rate endpoints.
type RateHandler struct {
	service rateService
}

// NewRateHandler builds a new handler.
func NewRateHandler(service rateService) *RateHandler {
	return &RateHandler{service: service}
}

// CreateTeacherRate godoc
// @Summary Create a teacher-scoped hourly rate
// @Tags Rates
// @Accept json
// @Produce json
// @Param payload body service.CreateRateRequest true "Rate"
// @Success 201 {object} response.Envelope
// @Router /rates/teacher [post]
func (h *RateHandler) CreateTeacherRate(c *gin.Context) {
	var req service.CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rate payload"))
		return
	}
	rate, err := h.service.CreateTeacherRate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rate)
}

// CreateSubjectDefaultRate godoc
// @Summary Create a subject default hourly rate
// @Tags Rates
// @Accept json
// @Produce json
// @Param payload body service.CreateRateRequest true "Rate"
// @Success 201 {object} response.Envelope
// @Router /rates/subject [post]
func (h *RateHandler) CreateSubjectDefaultRate(c *gin.Context) {
	var req service.CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rate payload"))
		return
	}
	rate, err := h.service.CreateSubjectDefaultRate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rate)
}

// Resolve godoc
// @Summary Resolve the rate for a teacher, subject and date
// @Tags Rates
// @Produce json
// @Param teacher_id query string true "Teacher ID"
// @Param subject_id query string true "Subject ID"
// @Param date query string true "Lesson date (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /rates/resolve [get]
func (h *RateHandler) Resolve(c *gin.Context) {
	onDate, err := time.Parse(time.RFC3339, c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be RFC3339"))
		return
	}
	rate, err := h.service.Resolve(c.Request.Context(), c.Query("teacher_id"), c.Query("subject_id"), onDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}
