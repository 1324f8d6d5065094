package models

import "time"

// ClubFile represents one imported attendance/payment file owned by exactly
// one Session. Its on-disk location is derived from Filename and Flagged:
// flagged files live under the session's flagged/ subdirectory.
type ClubFile struct {
	// ID is the unique identifier for the file (UUID format), assigned by
	// the store on create.
	ID string `json:"id"`

	// Filename is the original base name of the imported file. It never
	// changes; flagging moves the file, not renames it.
	Filename string `json:"filename"`

	// ImportedAt is when the file was imported into the session.
	ImportedAt time.Time `json:"importedAt"`

	// Flagged marks the file as needing manual review. It is derived from
	// the presence of unresolved records, never set directly by the user.
	Flagged bool `json:"flagged"`

	// Fees is the per-file fee schedule.
	Fees FeeSchedule `json:"feeSchedule"`

	// Records are the attendee rows in import order.
	Records []*AttendeeRecord `json:"records"`

	// Total is the cached file total, nil while undefined (some record is
	// still unresolved). Maintained by the finance package; every fee or
	// status mutation recomputes it before the mutation reports success.
	Total *float64 `json:"total,omitempty"`

	// Missing is set at load time when the metadata record references a
	// file that no longer exists on disk. It is a recoverable per-file
	// condition, not an error, and is not persisted.
	Missing bool `json:"-"`
}

// PresentStatuses returns the distinct statuses among the file's records,
// in AllStatuses order.
func (f *ClubFile) PresentStatuses() []Status {
	seen := make(map[Status]bool, len(f.Records))
	for _, r := range f.Records {
		seen[r.Status] = true
	}
	present := make([]Status, 0, len(seen))
	for _, status := range AllStatuses {
		if seen[status] {
			present = append(present, status)
		}
	}
	return present
}

// NeedsFlag reports whether any record is still unresolved. This is the
// only condition that ever flags a file.
func (f *ClubFile) NeedsFlag() bool {
	for _, r := range f.Records {
		if r.Unresolved() {
			return true
		}
	}
	return false
}

// Record returns the record at index (0-based), or nil when out of range.
func (f *ClubFile) Record(index int) *AttendeeRecord {
	if index < 0 || index >= len(f.Records) {
		return nil
	}
	return f.Records[index]
}
