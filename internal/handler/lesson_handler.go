package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/service"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
	"github.com/noah-isme/maktab-fin-api/pkg/response"
)

type lessonService interface {
	Record(ctx context.Context, req service.RecordLessonRequest) (*models.Lesson, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
}

// LessonHandler exposes real lesson record endpoints.
type LessonHandler struct {
	service lessonService
}

// NewLessonHandler builds a new handler.
func NewLessonHandler(service lessonService) *LessonHandler {
	return &LessonHandler{service: service}
}

// Record godoc
// @Summary Record a real lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.RecordLessonRequest true "Lesson"
// @Success 201 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Record(c *gin.Context) {
	var req service.RecordLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	lesson, err := h.service.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// List godoc
// @Summary List lesson records
// @Tags Lessons
// @Produce json
// @Param teacher_id query string false "Teacher ID"
// @Param period query string false "Period month (YYYY-MM)"
// @Param status query string false "Lesson status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	filter := models.LessonFilter{
		TeacherID: c.Query("teacher_id"),
		Status:    models.LessonStatus(c.Query("status")),
	}
	if raw := c.Query("period"); raw != "" {
		period, err := models.ParseMonthKey(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period"))
			return
		}
		filter.Period = period
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	lessons, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, lessons, pagination)
}
