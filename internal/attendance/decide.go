package attendance

import (
	"time"

	"campusattend/internal/roster"
)

// ScanAction is the direction a scan resolves to.
type ScanAction string

const (
	ActionIn  ScanAction = "in"
	ActionOut ScanAction = "out"
)

// Decide resolves a scan against the most recent record for the pair
// (nil when none exists). The scanning device carries no in/out intent:
// an open record toggles out, anything else toggles in.
func Decide(latest *Record) ScanAction {
	if latest == nil {
		return ActionIn
	}
	if latest.Open() {
		return ActionOut
	}
	return ActionIn
}

// StatusFor applies the canonical completion rule to a time pair under the
// event's attendance type. The same rule serves the reconciler and the
// administrative edit path.
func StatusFor(in, out *time.Time, at roster.AttendanceType) Status {
	switch {
	case in != nil && out != nil:
		return StatusPresent
	case in != nil:
		if at == roster.AttendInOnly {
			return StatusPresent
		}
		return StatusSignedInOnly
	default:
		return StatusAbsent
	}
}
