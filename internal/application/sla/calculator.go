// Package sla implements deadline derivation, the overdue sweep, and
// elapsed-time projection for tracked files.
package sla

import (
	"time"

	"github.com/opsdesk/filetrack/internal/domain/file"
)

// ─────────────────────────────────────────────────────────────────────────────
// Deadline calculation
// ─────────────────────────────────────────────────────────────────────────────

// slaDays maps each priority to its allowance in whole days.
var slaDays = map[file.Priority]int{
	file.PriorityCritical: 1,
	file.PriorityHigh:     3,
	file.PriorityMedium:   5,
	file.PriorityLow:      7,
}

// DurationForPriority returns the SLA allowance for a priority.  Unknown
// priorities get the Medium allowance, keeping the calculation total.
func DurationForPriority(p file.Priority) time.Duration {
	days, ok := slaDays[p]
	if !ok {
		days = slaDays[file.PriorityMedium]
	}
	return time.Duration(days) * 24 * time.Hour
}

// DeadlineFor computes the absolute deadline for a file uploaded at
// uploadTime with the given priority.  The result is always UTC so deadline
// comparisons are unaffected by the server's local zone.
func DeadlineFor(p file.Priority, uploadTime time.Time) time.Time {
	return uploadTime.UTC().Add(DurationForPriority(p))
}
