package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/service"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
	"github.com/noah-isme/maktab-fin-api/pkg/response"
)

type paymentService interface {
	Preview(ctx context.Context, studentID string, req service.PaymentRequest, asOf time.Time) (*models.PaymentPreview, error)
	Create(ctx context.Context, studentID string, req service.PaymentRequest, asOf time.Time) (*service.PaymentResult, error)
	Revert(ctx context.Context, paymentID string) (*models.Payment, error)
	FinanceDetail(ctx context.Context, studentID string, asOf time.Time) (*models.StudentFinanceDetail, error)
}

type debtService interface {
	Obligations(ctx context.Context, studentID string, startMonth models.MonthKey, count int, asOf time.Time) ([]models.MonthObligation, error)
}

type receiptExporter interface {
	PaymentReceipt(ctx context.Context, paymentID string) ([]byte, error)
}

// PaymentHandler exposes the tuition ledger endpoints.
type PaymentHandler struct {
	payments paymentService
	debt     debtService
	exports  receiptExporter
}

// NewPaymentHandler builds a new handler.
func NewPaymentHandler(payments paymentService, debt debtService, exports receiptExporter) *PaymentHandler {
	return &PaymentHandler{payments: payments, debt: debt, exports: exports}
}

// Preview godoc
// @Summary Preview a payment without applying it
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PaymentRequest true "Payment intent"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments/preview [post]
func (h *PaymentHandler) Preview(c *gin.Context) {
	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	preview, err := h.payments.Preview(c.Request.Context(), c.Param("id"), req, asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Create godoc
// @Summary Apply a payment to the student's debt ledger
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	if req.IdempotencyKey == nil {
		if key := c.GetHeader("X-Idempotency-Key"); key != "" {
			req.IdempotencyKey = &key
		}
	}
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.payments.Create(c.Request.Context(), c.Param("id"), req, asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}

// Revert godoc
// @Summary Revert a payment and reopen its months
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/revert [post]
func (h *PaymentHandler) Revert(c *gin.Context) {
	payment, err := h.payments.Revert(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// FinanceDetail godoc
// @Summary Student finance view: obligations, discounts, payments
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Param as_of query string false "Evaluation instant (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/finance [get]
func (h *PaymentHandler) FinanceDetail(c *gin.Context) {
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.payments.FinanceDetail(c.Request.Context(), c.Param("id"), asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Debt godoc
// @Summary Per-month obligations for a range
// @Tags Payments
// @Produce json
// @Param id path string true "Student ID"
// @Param start_month query string true "First month (YYYY-MM)"
// @Param count query int false "Number of months" default(12)
// @Param as_of query string false "Evaluation instant (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/debt [get]
func (h *PaymentHandler) Debt(c *gin.Context) {
	start, err := models.ParseMonthKey(c.Query("start_month"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start month"))
		return
	}
	count := 12
	if raw := c.Query("count"); raw != "" {
		count, err = strconv.Atoi(raw)
		if err != nil || count < 1 || count > 24 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "count must be between 1 and 24"))
			return
		}
	}
	asOf, err := asOfFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.debt.Obligations(c.Request.Context(), c.Param("id"), start, count, asOf)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Receipt godoc
// @Summary Download a PDF receipt for a payment
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Payment ID"
// @Success 200 {file} binary
// @Router /payments/{id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	out, err := h.exports.PaymentReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="receipt-`+c.Param("id")+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}
