package sla

import (
	"fmt"
	"math"
	"time"

	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Elapsed-time projection
// ─────────────────────────────────────────────────────────────────────────────

// attentionThreshold is the elapsed percentage above which a file is
// surfaced on the dashboard as needing attention.
const attentionThreshold = 50

// Projection is a dashboard-facing view of one file's SLA consumption.
type Projection struct {
	FileID common.ID `json:"file_id"`

	// ElapsedPercent is how much of the allowance has been consumed,
	// clamped to [0, 100].
	ElapsedPercent int `json:"elapsed_percent"`

	// TimeLeft is a human-readable remaining-time string: "2d 5h" when a
	// day or more remains, "7h" under a day, "Overdue" past the deadline.
	TimeLeft string `json:"time_left"`

	// NeedsAttention is set when more than half the allowance is gone.
	NeedsAttention bool `json:"needs_attention"`
}

// Project computes the SLA consumption view for a file at instant now.
// Returns ok=false for files without a deadline (completed files), which
// carry no projection.
//
// The percentage is anchored on the upload time, not the sweep schedule, so
// it advances smoothly between sweeps.  Clock skew that places now before
// the upload time clamps to 0 rather than going negative.
func Project(f *file.File, now time.Time) (Projection, bool) {
	if f.SLADeadline == nil || f.UploadTime.IsZero() {
		return Projection{}, false
	}
	deadline := f.SLADeadline.UTC()
	now = now.UTC()

	total := deadline.Sub(f.UploadTime.UTC())
	if total <= 0 {
		// Malformed deadline state, nothing meaningful to show.
		return Projection{}, false
	}
	elapsed := now.Sub(f.UploadTime.UTC())

	pct := int(math.Round(float64(elapsed) * 100 / float64(total)))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return Projection{
		FileID:         f.ID,
		ElapsedPercent: pct,
		TimeLeft:       FormatTimeLeft(deadline, now),
		NeedsAttention: pct > attentionThreshold,
	}, true
}

// FormatTimeLeft renders the time remaining until deadline as seen at now.
// Partial hours round down, so "1h" means at least one full hour remains;
// the boundary instant itself still reads as remaining time, matching the
// sweep's strictly-after overdue rule.
func FormatTimeLeft(deadline, now time.Time) string {
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return "Overdue"
	}
	days := int(remaining / (24 * time.Hour))
	hours := int(remaining % (24 * time.Hour) / time.Hour)
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	return fmt.Sprintf("%dh", hours)
}
