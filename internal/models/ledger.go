package models

// LedgerSnapshot is a consistent read of everything the debt ledger needs for
// one student: tariff history, active discounts and active payments. It is
// loaded in a single pass (inside the payment transaction when mutating, or a
// plain read for previews) and never cached authoritatively.
type LedgerSnapshot struct {
	StudentID string
	// Versions is the full tariff history ordered by EffectiveFrom ascending.
	Versions []TariffVersion
	// Discounts holds the student's ACTIVE discounts.
	Discounts []Discount
	// Payments holds the student's ACTIVE payments.
	Payments []Payment
}

// VersionFor returns the tariff version effective at the given month, or nil
// when no version covers it.
func (s *LedgerSnapshot) VersionFor(month MonthKey) *TariffVersion {
	var match *TariffVersion
	for i := range s.Versions {
		v := &s.Versions[i]
		if v.EffectiveFrom.Before(month) || v.EffectiveFrom == month {
			match = v
		}
	}
	return match
}

// DiscountFor returns the discount applying to the given month. Overlapping
// active discounts are rejected at creation, so at most one can match; if the
// data is ever inconsistent the most recently created one wins.
func (s *LedgerSnapshot) DiscountFor(month MonthKey) *Discount {
	var match *Discount
	for i := range s.Discounts {
		d := &s.Discounts[i]
		if !d.Active || !d.Covers(month) {
			continue
		}
		if match == nil || match.CreatedAt.Before(d.CreatedAt) {
			match = d
		}
	}
	return match
}

// MonthClosed reports whether any ACTIVE payment already closed the month.
func (s *LedgerSnapshot) MonthClosed(month MonthKey) bool {
	for i := range s.Payments {
		p := &s.Payments[i]
		if p.Status != PaymentActive {
			continue
		}
		for _, closed := range p.ClosedMonths {
			if MonthKey(closed) == month {
				return true
			}
		}
	}
	return false
}
