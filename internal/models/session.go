package models

import (
	"path/filepath"
	"time"
)

// MetadataVersion is the schema version written into every session record.
// Loads accept a missing version (treated as 1) and reject newer versions
// rather than rewriting records they do not understand.
const MetadataVersion = 1

// FlaggedDirName is the subdirectory of a session that holds flagged files.
const FlaggedDirName = "flagged"

// Session represents one billing period for one club. Exactly one session
// may be active in a process at a time; that invariant is held by the
// service layer, not here.
type Session struct {
	// ID is the unique identifier for the session (UUID format), assigned
	// by the store on create.
	ID string `json:"id"`

	// Club is the club name. Together with Label it locates the session
	// directory under the data root.
	Club string `json:"club"`

	// Label identifies the billing period (a date or free label).
	Label string `json:"sessionLabel"`

	// Paid is the payment lifecycle flag. It is informational only and
	// locks no editing.
	Paid bool `json:"paid"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"createdAt"`

	// LastOpened is touched on every load and orders session listings.
	LastOpened time.Time `json:"lastOpened"`

	// DataRootVersion is the metadata schema version, see MetadataVersion.
	DataRootVersion int `json:"dataRootVersion"`

	// Files are the imported club files in import order.
	Files []*ClubFile `json:"files"`

	// Path is the absolute session directory. Set by the store; not part
	// of the durable record (the record must survive a data-root move).
	Path string `json:"-"`
}

// File returns the file with the given ID or base filename, or nil.
func (s *Session) File(key string) *ClubFile {
	for _, f := range s.Files {
		if f.ID == key || f.Filename == key {
			return f
		}
	}
	return nil
}

// FilePath returns the current on-disk path of f within the session:
// the flagged/ subdirectory when flagged, the session directory otherwise.
func (s *Session) FilePath(f *ClubFile) string {
	if f.Flagged {
		return filepath.Join(s.Path, FlaggedDirName, f.Filename)
	}
	return filepath.Join(s.Path, f.Filename)
}

// FlaggedDir returns the session's flagged/ subdirectory.
func (s *Session) FlaggedDir() string {
	return filepath.Join(s.Path, FlaggedDirName)
}

// Flagged reports whether any file in the session is flagged.
func (s *Session) Flagged() bool {
	for _, f := range s.Files {
		if f.Flagged {
			return true
		}
	}
	return false
}

// SessionSummary is the read-only listing form of a session.
type SessionSummary struct {
	ID         string    `json:"id"`
	Club       string    `json:"club"`
	Label      string    `json:"sessionLabel"`
	Paid       bool      `json:"paid"`
	Flagged    bool      `json:"flagged"`
	FileCount  int       `json:"fileCount"`
	CreatedAt  time.Time `json:"createdAt"`
	LastOpened time.Time `json:"lastOpened"`
	Path       string    `json:"-"`
}

// Summarize builds the listing form of s.
func (s *Session) Summarize() SessionSummary {
	return SessionSummary{
		ID:         s.ID,
		Club:       s.Club,
		Label:      s.Label,
		Paid:       s.Paid,
		Flagged:    s.Flagged(),
		FileCount:  len(s.Files),
		CreatedAt:  s.CreatedAt,
		LastOpened: s.LastOpened,
		Path:       s.Path,
	}
}
