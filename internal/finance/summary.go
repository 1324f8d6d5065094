// Package finance aggregates attendee records into per-file and per-session
// financial summaries against each file's fee schedule.
//
// Refund policy (the single documented policy for the whole application):
// a Refund status contributes its scheduled fee as a deduction. A file's
// visible Total is floored at zero; the signed value (income minus
// deductions) is always carried in NetAdjustments so no screen has to
// re-derive it with different rules.
package finance

import (
	"sort"

	"github.com/courtside/courtbill/internal/models"
)

// StatusLine is the count and signed subtotal for one summary bucket.
type StatusLine struct {
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

// FileSummary is the immutable financial view of one club file.
type FileSummary struct {
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`

	// Total is the visible file total, nil while undefined (the file still
	// has unresolved records). Defined totals are floored at zero.
	Total *float64 `json:"total,omitempty"`

	// NetAdjustments is the signed total: income minus refund deductions,
	// without the zero floor.
	NetAdjustments float64 `json:"netAdjustments"`

	// ByStatus buckets records by canonical status.
	ByStatus map[models.Status]StatusLine `json:"byStatus"`

	// ByFee buckets billable records by their resolved fee amount.
	ByFee map[float64]StatusLine `json:"byFee"`

	// Unresolved is the number of records still classified StatusOther.
	Unresolved int `json:"unresolved"`

	// NoShows is the number of records carrying the no-show modifier.
	NoShows int `json:"noShows"`
}

// SessionSummary is the immutable financial view of one session.
type SessionSummary struct {
	Club  string `json:"club"`
	Label string `json:"sessionLabel"`

	// GrossTotal sums the defined file totals.
	GrossTotal float64 `json:"grossTotal"`

	// ClubCut is GrossTotal minus the platform's configured share.
	ClubCut float64 `json:"clubCutTotal"`

	// PlatformShare is the share fraction the cut was computed with.
	PlatformShare float64 `json:"platformShare"`

	// ByFee aggregates the per-file fee buckets across the session.
	ByFee map[float64]StatusLine `json:"byFee"`

	// Files holds one summary per file, in session order.
	Files []FileSummary `json:"perFileSummaries"`

	// UndefinedFiles counts files whose total is still undefined and
	// therefore excluded from GrossTotal.
	UndefinedFiles int `json:"undefinedFiles"`
}

// SummarizeFile computes the financial summary of one file.
//
// A record's resolved fee is the schedule amount for its status (default
// when unset). Refund records contribute the fee negatively. StatusOther
// records contribute nothing and keep the total undefined.
func SummarizeFile(f *models.ClubFile) FileSummary {
	summary := FileSummary{
		FileID:   f.ID,
		Filename: f.Filename,
		ByStatus: make(map[models.Status]StatusLine),
		ByFee:    make(map[float64]StatusLine),
	}

	for _, record := range f.Records {
		if record.NoShow {
			summary.NoShows++
		}

		if record.Unresolved() {
			summary.Unresolved++
			line := summary.ByStatus[models.StatusOther]
			line.Count++
			summary.ByStatus[models.StatusOther] = line
			continue
		}

		fee := f.Fees.Get(record.Status)
		contribution := fee
		if record.Status == models.StatusRefund {
			contribution = -fee
		}
		summary.NetAdjustments += contribution

		line := summary.ByStatus[record.Status]
		line.Count++
		line.Subtotal += contribution
		summary.ByStatus[record.Status] = line

		feeLine := summary.ByFee[fee]
		feeLine.Count++
		feeLine.Subtotal += contribution
		summary.ByFee[fee] = feeLine
	}

	// A file with no ingested records (a recovery that could not re-read
	// its rows) has no defined total; a 0.00 here would misstate the file.
	if summary.Unresolved == 0 && len(f.Records) > 0 {
		total := summary.NetAdjustments
		if total < 0 {
			total = 0
		}
		summary.Total = &total
	}
	return summary
}

// Recompute refreshes the cached total on f. Every mutation that can move
// the total (fee edit, fee reset, status change, import) must call this
// before reporting success; a stale cached total is never acceptable.
func Recompute(f *models.ClubFile) {
	summary := SummarizeFile(f)
	f.Total = summary.Total
}

// SummarizeSession computes the session-wide summary. platformShare is the
// platform's fraction of gross in [0, 1).
func SummarizeSession(s *models.Session, platformShare float64) SessionSummary {
	summary := SessionSummary{
		Club:          s.Club,
		Label:         s.Label,
		PlatformShare: platformShare,
		ByFee:         make(map[float64]StatusLine),
		Files:         make([]FileSummary, 0, len(s.Files)),
	}

	for _, f := range s.Files {
		fileSummary := SummarizeFile(f)
		summary.Files = append(summary.Files, fileSummary)

		if fileSummary.Total == nil {
			summary.UndefinedFiles++
			continue
		}
		summary.GrossTotal += *fileSummary.Total
		for fee, line := range fileSummary.ByFee {
			agg := summary.ByFee[fee]
			agg.Count += line.Count
			agg.Subtotal += line.Subtotal
			summary.ByFee[fee] = agg
		}
	}

	summary.ClubCut = summary.GrossTotal * (1 - platformShare)
	return summary
}

// FeeAmounts returns the fee buckets of a summary in ascending order, for
// stable display.
func FeeAmounts(byFee map[float64]StatusLine) []float64 {
	amounts := make([]float64, 0, len(byFee))
	for fee := range byFee {
		amounts = append(amounts, fee)
	}
	sort.Float64s(amounts)
	return amounts
}
