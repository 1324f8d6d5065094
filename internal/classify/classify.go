// Package classify derives the canonical status of an attendee from the raw
// payment note on the imported row. Classification is a pure function: same
// note, name and comped list always yield the same result.
package classify

import (
	"strings"

	"github.com/courtside/courtbill/internal/models"
)

// Marker keyword sets, matched case-insensitively as substrings of the raw
// note. Comped-list membership short-circuits everything; after that the
// first matching group in priority order wins, and a note matching nothing
// classifies as StatusOther.
var (
	waitlistMarkers = []string{"waitlist", "wait list", "waitlisted"}
	refundMarkers   = []string{"refund", "refunded", "charge back", "chargeback"}
	manualMarkers   = []string{"cash", "manual", "in person", "e-transfer", "etransfer"}
	regularMarkers  = []string{"paypal", "pay pal", "card", "online"}
	noShowMarkers   = []string{"no show", "no-show", "noshow"}
)

// Classify maps a raw note to a canonical status plus the no-show modifier.
//
// Priority order: comped-list membership, waitlist, refund, manual/cash,
// PayPal/electronic, then StatusOther. The no-show modifier is detected
// independently and never overrides a status.
func Classify(rawNote, attendeeName string, comped models.CompedList) (models.Status, bool) {
	noShow := containsAny(rawNote, noShowMarkers)

	if comped.Contains(attendeeName) {
		return models.StatusComped, noShow
	}

	switch {
	case containsAny(rawNote, waitlistMarkers):
		return models.StatusWaitlist, noShow
	case containsAny(rawNote, refundMarkers):
		return models.StatusRefund, noShow
	case containsAny(rawNote, manualMarkers):
		return models.StatusManual, noShow
	case containsAny(rawNote, regularMarkers):
		return models.StatusRegular, noShow
	}
	return models.StatusOther, noShow
}

// Apply classifies every record of the file in place. Overridden records
// keep their status (SetDerived ignores the derived value for them).
func Apply(file *models.ClubFile, comped models.CompedList) {
	for _, record := range file.Records {
		status, noShow := Classify(record.RawNote, record.Name, comped)
		record.SetDerived(status, noShow)
	}
}

func containsAny(note string, markers []string) bool {
	lowered := strings.ToLower(note)
	for _, marker := range markers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
