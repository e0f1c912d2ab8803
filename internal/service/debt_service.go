package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/maktab-fin-api/internal/models"
	appErrors "github.com/noah-isme/maktab-fin-api/pkg/errors"
)

type ledgerReader interface {
	Snapshot(ctx context.Context, studentID string) (models.LedgerSnapshot, error)
}

// DebtService is the debt ledger: it derives per-month obligations from the
// tariff history, active discounts and active payments. Obligations are never
// stored; every call recomputes from the snapshot.
type DebtService struct {
	ledger ledgerReader
	logger *zap.Logger
}

// NewDebtService constructs DebtService.
func NewDebtService(ledger ledgerReader, logger *zap.Logger) *DebtService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebtService{ledger: ledger, logger: logger}
}

// Obligations returns the obligation rows for count months starting at
// startMonth, oldest first. The ordering is the contract payment application
// depends on.
func (s *DebtService) Obligations(ctx context.Context, studentID string, startMonth models.MonthKey, count int, asOf time.Time) ([]models.MonthObligation, error) {
	if !startMonth.Valid() || count <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month range")
	}
	snap, err := s.ledger.Snapshot(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger snapshot")
	}
	return ComputeObligations(snap, startMonth.Range(count), asOf), nil
}

// ComputeObligations evaluates the debt ledger for the given months against a
// snapshot. It is a pure function so payment application can run it inside
// the same transaction that loaded the snapshot. Months keep input order;
// callers pass them oldest first.
func ComputeObligations(snap models.LedgerSnapshot, months []models.MonthKey, asOf time.Time) []models.MonthObligation {
	out := make([]models.MonthObligation, 0, len(months))
	for _, month := range months {
		row := models.MonthObligation{Month: month}
		version := snap.VersionFor(month)
		if version == nil || !version.Calendar().IsChargeable(month) {
			out = append(out, row)
			continue
		}
		row.Base = version.MonthlyAmount
		if d := discountAsOf(snap, month, asOf); d != nil {
			row.DiscountAmount = discountAmount(d, row.Base)
		}
		net := row.Base - row.DiscountAmount
		if net < 0 {
			net = 0
		}
		if snap.MonthClosed(month) {
			row.Paid = net
		} else {
			row.Owed = net
		}
		out = append(out, row)
	}
	return out
}

// discountAsOf ignores discounts created after asOf so a given timestamp
// always yields the same ledger.
func discountAsOf(snap models.LedgerSnapshot, month models.MonthKey, asOf time.Time) *models.Discount {
	d := snap.DiscountFor(month)
	if d == nil || d.CreatedAt.After(asOf) {
		return nil
	}
	return d
}

func discountAmount(d *models.Discount, base int64) int64 {
	switch d.Type {
	case models.DiscountFullWaiver:
		return base
	case models.DiscountFixed:
		if d.Value == nil {
			return 0
		}
		if *d.Value > base {
			return base
		}
		return *d.Value
	case models.DiscountPercent:
		if d.Value == nil {
			return 0
		}
		return decimal.NewFromInt(base).
			Mul(decimal.NewFromInt(*d.Value)).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart()
	default:
		return 0
	}
}

// OutstandingTotal sums what the student still owes across the given rows.
func OutstandingTotal(rows []models.MonthObligation) int64 {
	var total int64
	for _, row := range rows {
		total += row.Owed
	}
	return total
}
