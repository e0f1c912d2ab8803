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

type payrollService interface {
	GenerateRun(ctx context.Context, period models.MonthKey) (*models.PayrollRunDetail, error)
	GetRun(ctx context.Context, runID string) (*models.PayrollRunDetail, error)
	AddAdjustment(ctx context.Context, runID string, req service.AdjustmentRequest) (*models.PayrollLine, error)
	Transition(ctx context.Context, runID string, req service.TransitionRequest) (*models.PayrollRun, error)
}

type payrollExporter interface {
	PayrollRunCSV(ctx context.Context, runID string) ([]byte, *models.PayrollRun, error)
}

type generateRunRequest struct {
	Period string `json:"period" binding:"required"`
}

// PayrollHandler exposes payroll run endpoints.
type PayrollHandler struct {
	service payrollService
	exports payrollExporter
}

// NewPayrollHandler builds a new handler.
func NewPayrollHandler(service payrollService, exports payrollExporter) *PayrollHandler {
	return &PayrollHandler{service: service, exports: exports}
}

// Generate godoc
// @Summary Generate a DRAFT payroll run for a period
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body generateRunRequest true "Period month"
// @Success 201 {object} response.Envelope
// @Router /payroll/runs [post]
func (h *PayrollHandler) Generate(c *gin.Context) {
	var req generateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run payload"))
		return
	}
	period, err := models.ParseMonthKey(req.Period)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period month"))
		return
	}
	detail, err := h.service.GenerateRun(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Payroll run detail with lines and total
// @Tags Payroll
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /payroll/runs/{id} [get]
func (h *PayrollHandler) Get(c *gin.Context) {
	detail, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// AddLine godoc
// @Summary Add a manual adjustment line to a DRAFT run
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body service.AdjustmentRequest true "Adjustment"
// @Success 201 {object} response.Envelope
// @Router /payroll/runs/{id}/lines [post]
func (h *PayrollHandler) AddLine(c *gin.Context) {
	var req service.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}
	line, err := h.service.AddAdjustment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, line)
}

// Transition godoc
// @Summary Move a run through its lifecycle
// @Tags Payroll
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body service.TransitionRequest true "Target state"
// @Success 200 {object} response.Envelope
// @Router /payroll/runs/{id}/transition [post]
func (h *PayrollHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transition payload"))
		return
	}
	run, err := h.service.Transition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Export godoc
// @Summary Download the run's lines as CSV
// @Tags Payroll
// @Produce text/csv
// @Param id path string true "Run ID"
// @Success 200 {file} binary
// @Router /payroll/runs/{id}/export [get]
func (h *PayrollHandler) Export(c *gin.Context) {
	out, run, err := h.exports.PayrollRunCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="payroll-`+run.PeriodMonth.String()+`.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}
