package models

import "fmt"

const (
	// DefaultFee is the amount assumed for a status with no assigned fee.
	DefaultFee = 10.00

	// MinFee is the smallest amount a fee may be set to.
	MinFee = 1.00
)

// InvalidFeeError is returned when a fee mutation is rejected. The prior
// schedule value is always retained.
type InvalidFeeError struct {
	Status Status
	Amount float64
	Reason string
}

func (e *InvalidFeeError) Error() string {
	return fmt.Sprintf("invalid fee %.2f for status %q: %s", e.Amount, e.Status, e.Reason)
}

// FeeSchedule maps a billable status to a non-negative monetary amount.
// It is scoped per ClubFile. Refund amounts are stored non-negative and
// applied as deductions by the finance package.
type FeeSchedule map[Status]float64

// Get returns the assigned amount for status, or DefaultFee if unset.
func (fs FeeSchedule) Get(status Status) float64 {
	if amount, ok := fs[status]; ok {
		return amount
	}
	return DefaultFee
}

// Set assigns an amount to a billable status. Amounts below MinFee and
// non-billable statuses are rejected before any mutation.
func (fs FeeSchedule) Set(status Status, amount float64) error {
	if !status.Billable() {
		return &InvalidFeeError{Status: status, Amount: amount, Reason: "status is not billable"}
	}
	if amount < MinFee {
		return &InvalidFeeError{Status: status, Amount: amount, Reason: fmt.Sprintf("amount must be at least %.2f", float64(MinFee))}
	}
	fs[status] = amount
	return nil
}

// IsComplete reports whether every billable status in present has an
// explicitly assigned fee. StatusOther entries in present are ignored;
// they are resolved by status edits, not by fees.
func (fs FeeSchedule) IsComplete(present []Status) bool {
	for _, status := range present {
		if !status.Billable() {
			continue
		}
		if _, ok := fs[status]; !ok {
			return false
		}
	}
	return true
}

// ResetAll assigns DefaultFee to every billable status in present.
func (fs FeeSchedule) ResetAll(present []Status) {
	for _, status := range present {
		if status.Billable() {
			fs[status] = DefaultFee
		}
	}
}

// Clone returns an independent copy of the schedule.
func (fs FeeSchedule) Clone() FeeSchedule {
	out := make(FeeSchedule, len(fs))
	for status, amount := range fs {
		out[status] = amount
	}
	return out
}
