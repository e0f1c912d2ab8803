package models

import (
	"time"

	"github.com/lib/pq"
)

// PaymentType enumerates supported payment shapes.
type PaymentType string

const (
	PaymentMonthly   PaymentType = "MONTHLY"
	PaymentAnnual    PaymentType = "ANNUAL"
	PaymentArbitrary PaymentType = "ARBITRARY"
)

// PaymentStatus tracks whether a payment still closes its months.
type PaymentStatus string

const (
	PaymentActive   PaymentStatus = "ACTIVE"
	PaymentReverted PaymentStatus = "REVERTED"
)

// Payment records a tuition payment and the exact months it closed.
// ClosedMonths is ordered oldest first and is the authority for which
// obligations the payment settled.
type Payment struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	Type           PaymentType    `db:"type" json:"type"`
	StartMonth     MonthKey       `db:"start_month" json:"start_month"`
	MonthCount     int            `db:"month_count" json:"month_count"`
	Amount         int64          `db:"amount" json:"amount"`
	IdempotencyKey *string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Status         PaymentStatus  `db:"status" json:"status"`
	ClosedMonths   pq.StringArray `db:"closed_months" json:"closed_months"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	RevertedAt     *time.Time     `db:"reverted_at" json:"reverted_at,omitempty"`
}

// ClosedMonthKeys returns ClosedMonths as typed keys.
func (p *Payment) ClosedMonthKeys() []MonthKey {
	keys := make([]MonthKey, len(p.ClosedMonths))
	for i, m := range p.ClosedMonths {
		keys[i] = MonthKey(m)
	}
	return keys
}

// MonthObligation is one row of the debt ledger: what a student owes for a
// single month after the active discount and prior payments are applied.
type MonthObligation struct {
	Month          MonthKey `json:"month"`
	Base           int64    `json:"base"`
	DiscountAmount int64    `json:"discount_amount"`
	Paid           int64    `json:"paid"`
	Owed           int64    `json:"owed"`
}

// PaymentPreview is the dry-run result of applying a payment request.
type PaymentPreview struct {
	ClosingSet     []MonthKey `json:"closing_set"`
	ExpectedAmount int64      `json:"expected_amount"`
	Valid          bool       `json:"valid"`
	Reason         string     `json:"reason,omitempty"`
}

// StudentFinanceDetail is the assembled finance view of one student.
type StudentFinanceDetail struct {
	StudentID   string            `json:"student_id"`
	Obligations []MonthObligation `json:"obligations"`
	TotalOwed   int64             `json:"total_owed"`
	Discounts   []Discount        `json:"discounts"`
	Payments    []Payment         `json:"payments"`
}
