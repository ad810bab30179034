package attendance

import (
	"encoding/json"
	"errors"
	"time"
)

// Status tags a record's completion state.
type Status string

const (
	StatusPresent      Status = "PRESENT"
	StatusSignedInOnly Status = "SIGNED_IN_ONLY"
	StatusAbsent       Status = "ABSENT"
	// StatusIncomplete is a display-only class for rows with neither time
	// set. The reconciler never produces such rows; legacy imports can.
	StatusIncomplete Status = "INCOMPLETE"
)

// ModeSignIn marks rows created by the scan toggle. Advisory only.
const ModeSignIn = "SIGN_IN"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrConflict        = errors.New("concurrent scan conflict")
	ErrInvalidPatch    = errors.New("time_out requires time_in")
)

// Record is one attendance row for an (event, student) pair. A pair can
// accumulate several rows over time; "latest" ordering is (CreatedAt, Seq)
// descending, with Seq breaking timestamp ties.
type Record struct {
	ID          string     `json:"id"`
	Seq         int64      `json:"-"`
	EventID     string     `json:"event_id"`
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	TimeIn      *time.Time `json:"time_in"`
	TimeOut     *time.Time `json:"time_out"`
	Status      Status     `json:"status"`
	Mode        string     `json:"mode,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	DeletedAt   *time.Time `json:"-"`
	ScannedAt   *time.Time `json:"scanned_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// legacyTimes is the serialized form some historical rows carry in notes
// instead of the structured columns.
type legacyTimes struct {
	TimeIn  *time.Time `json:"timeIn"`
	TimeOut *time.Time `json:"timeOut"`
}

// EffectiveTimes returns the record's sign-in/sign-out pair, falling back to
// the legacy notes encoding when the structured columns were never set.
// New writes always use the structured columns.
func (r Record) EffectiveTimes() (in, out *time.Time) {
	if r.TimeIn != nil {
		return r.TimeIn, r.TimeOut
	}
	if r.Notes == nil || *r.Notes == "" {
		return nil, nil
	}
	var lt legacyTimes
	if err := json.Unmarshal([]byte(*r.Notes), &lt); err != nil {
		return nil, nil
	}
	return lt.TimeIn, lt.TimeOut
}

// Open reports whether the record is signed in but not yet signed out.
func (r Record) Open() bool {
	in, out := r.EffectiveTimes()
	return in != nil && out == nil
}

// Later reports whether r was created after other under the total
// (CreatedAt, Seq) order.
func (r Record) Later(other Record) bool {
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.After(other.CreatedAt)
	}
	return r.Seq > other.Seq
}
