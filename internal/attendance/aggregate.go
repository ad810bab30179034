package attendance

import (
	"sort"

	"campusattend/internal/roster"
)

// LatestPerStudent collapses an event's rows to one per student, keeping the
// most recently created row for each. Input rows may arrive in any order.
func LatestPerStudent(recs []Record) []Record {
	latest := make(map[string]Record, len(recs))
	for _, r := range recs {
		cur, ok := latest[r.StudentID]
		if !ok || r.Later(cur) {
			latest[r.StudentID] = r
		}
	}
	out := make([]Record, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StudentName != out[j].StudentName {
			return out[i].StudentName < out[j].StudentName
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out
}

// Completed reports whether a retained row counts as attended under the
// event's attendance type.
func Completed(r Record, at roster.AttendanceType) bool {
	in, out := r.EffectiveTimes()
	if in == nil {
		return false
	}
	if at == roster.AttendInOut {
		return out != nil
	}
	return true
}

// CountAttended counts attended rows among the retained (one-per-student) set.
func CountAttended(recs []Record, at roster.AttendanceType) int {
	n := 0
	for _, r := range recs {
		if Completed(r, at) {
			n++
		}
	}
	return n
}

// Classify buckets a retained row for history views. Rows with neither time
// set should not occur through the scan path but must still render.
func Classify(r Record) Status {
	in, out := r.EffectiveTimes()
	switch {
	case in != nil && out != nil:
		return StatusPresent
	case in != nil:
		return StatusSignedInOnly
	default:
		return StatusIncomplete
	}
}

// Percentage computes round(attended/total*100) with a zero-total guard.
func Percentage(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(attended)/float64(total)*100 + 0.5)
}
