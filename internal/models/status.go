package models

// Status is the canonical payment status of an attendee.
type Status string

const (
	// StatusRegular is an attendee who paid electronically (PayPal etc).
	StatusRegular Status = "regular"

	// StatusManual is an attendee who paid by cash or other manual means.
	StatusManual Status = "manual"

	// StatusWaitlist is an attendee admitted from the waitlist.
	StatusWaitlist Status = "waitlist"

	// StatusComped is an attendee on the standing no-charge list.
	StatusComped Status = "comped"

	// StatusRefund is an attendee whose payment was refunded.
	StatusRefund Status = "refund"

	// StatusOther is the fallback when no marker matched. A file containing
	// an unresolved StatusOther record needs manual review and is flagged.
	StatusOther Status = "other"
)

// AllStatuses lists every canonical status, StatusOther last.
var AllStatuses = []Status{
	StatusRegular,
	StatusManual,
	StatusWaitlist,
	StatusComped,
	StatusRefund,
	StatusOther,
}

// FeeStatuses lists the statuses a fee schedule may carry an amount for.
// StatusOther is excluded: it marks a row as unresolved, it is never billed.
var FeeStatuses = []Status{
	StatusRegular,
	StatusManual,
	StatusWaitlist,
	StatusComped,
	StatusRefund,
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Billable reports whether s may carry a fee schedule amount.
func (s Status) Billable() bool {
	return s.Valid() && s != StatusOther
}
