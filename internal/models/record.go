package models

// AttendeeRecord represents one row of an imported club file.
type AttendeeRecord struct {
	// Name is the attendee name as imported.
	Name string `json:"name"`

	// RawNote is the free-text payment note from the import, kept verbatim.
	RawNote string `json:"rawNote"`

	// Status is the canonical payment status. It is derived from RawNote at
	// classification time unless Overridden is set.
	Status Status `json:"status"`

	// NoShow marks the attendee as a no-show. It is an independent modifier
	// detected from RawNote, never a status value.
	NoShow bool `json:"noShow"`

	// Overridden is true once the user has set Status by hand. An overridden
	// status is authoritative and is never re-derived automatically.
	Overridden bool `json:"overridden"`

	// AnkleNote is a free-form user annotation, independent of RawNote.
	AnkleNote string `json:"ankleNote"`
}

// SetDerived records classifier output. It is a no-op on Status when the
// record has been overridden; NoShow is a plain modifier and always updates.
func (r *AttendeeRecord) SetDerived(status Status, noShow bool) {
	r.NoShow = noShow
	if r.Overridden {
		return
	}
	r.Status = status
}

// Override sets Status by user decision. From here on the classifier can no
// longer touch it.
func (r *AttendeeRecord) Override(status Status) {
	r.Status = status
	r.Overridden = true
}

// Unresolved reports whether the record still needs manual resolution.
func (r *AttendeeRecord) Unresolved() bool {
	return r.Status == StatusOther
}
