package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Interval is a half-open time range [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two half-open ranges share any instant.
// Ranges that only touch at a boundary do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Valid reports whether End is strictly after Start
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// FindOverlap returns the first active entry other than excludeID whose range
// overlaps candidate.
func FindOverlap(candidate Interval, entries []RevenueEntry, excludeID uuid.UUID) (*RevenueEntry, bool) {
	for i := range entries {
		e := &entries[i]
		if !e.Active || e.ID == excludeID {
			continue
		}
		if candidate.Overlaps(e.Interval()) {
			return e, true
		}
	}
	return nil, false
}

// CheckOverlap fails with ErrEntryOverlap when candidate collides with another active entry
func CheckOverlap(candidate Interval, entries []RevenueEntry, excludeID uuid.UUID) error {
	if other, found := FindOverlap(candidate, entries, excludeID); found {
		return ErrEntryOverlap.With("conflicting_entry_id", other.ID.String())
	}
	return nil
}
