package roster

// ScopeType is the breadth of students an event applies to.
type ScopeType string

const (
	ScopeUniversityWide ScopeType = "UNIVERSITY_WIDE"
	ScopeCollegeWide    ScopeType = "COLLEGE_WIDE"
	ScopeCourseSpecific ScopeType = "COURSE_SPECIFIC"
)

// AttendanceType is the completion rule for an event.
type AttendanceType string

const (
	AttendInOnly AttendanceType = "IN_ONLY"
	AttendInOut  AttendanceType = "IN_OUT"
)

// Event is the catalog view of an event the attendance core depends on.
type Event struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	ScopeType      ScopeType      `json:"scope_type"`
	ScopeCollege   *string        `json:"scope_college,omitempty"`
	ScopeCourse    *string        `json:"scope_course,omitempty"`
	AttendanceType AttendanceType `json:"attendance_type"`
}

// Student is the catalog view of a student.
type Student struct {
	ID      string `json:"id"`
	Barcode string `json:"barcode"`
	Name    string `json:"name"`
	College string `json:"college"`
	Course  string `json:"course"`
	Active  bool   `json:"active"`
}

// Scope is an event's scope declaration resolved into a concrete population
// filter. Fallback is set when the declaration was incomplete (e.g.
// COLLEGE_WIDE with no college) and the filter widened to the full active set.
type Scope struct {
	Type     ScopeType `json:"type"`
	College  string    `json:"college,omitempty"`
	Course   string    `json:"course,omitempty"`
	Fallback bool      `json:"-"`
}

// Scope resolves the event's scope declaration. An incomplete declaration
// never silently narrows or errors: it widens to university-wide with
// Fallback set so the caller can log the misconfiguration.
func (e Event) Scope() Scope {
	switch e.ScopeType {
	case ScopeCollegeWide:
		if e.ScopeCollege == nil || *e.ScopeCollege == "" {
			return Scope{Type: ScopeUniversityWide, Fallback: true}
		}
		return Scope{Type: ScopeCollegeWide, College: *e.ScopeCollege}
	case ScopeCourseSpecific:
		if e.ScopeCourse == nil || *e.ScopeCourse == "" {
			return Scope{Type: ScopeUniversityWide, Fallback: true}
		}
		sc := Scope{Type: ScopeCourseSpecific, Course: *e.ScopeCourse}
		if e.ScopeCollege != nil {
			sc.College = *e.ScopeCollege
		}
		return sc
	default:
		return Scope{Type: ScopeUniversityWide}
	}
}

// Describe renders the scope for stats payloads, e.g. "college:CCS".
func (s Scope) Describe() string {
	switch s.Type {
	case ScopeCollegeWide:
		return "college:" + s.College
	case ScopeCourseSpecific:
		return "course:" + s.Course
	default:
		return "university"
	}
}

// Matches reports whether an active student falls inside the scope.
func (s Scope) Matches(st Student) bool {
	if !st.Active {
		return false
	}
	switch s.Type {
	case ScopeCollegeWide:
		return st.College == s.College
	case ScopeCourseSpecific:
		return st.Course == s.Course
	default:
		return true
	}
}
