package roster

import "testing"

func str(s string) *string { return &s }

func TestEventScope(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  Scope
	}{
		{
			name:  "university wide",
			event: Event{ScopeType: ScopeUniversityWide},
			want:  Scope{Type: ScopeUniversityWide},
		},
		{
			name:  "college wide",
			event: Event{ScopeType: ScopeCollegeWide, ScopeCollege: str("CCS")},
			want:  Scope{Type: ScopeCollegeWide, College: "CCS"},
		},
		{
			name:  "college wide without college widens with fallback flag",
			event: Event{ScopeType: ScopeCollegeWide},
			want:  Scope{Type: ScopeUniversityWide, Fallback: true},
		},
		{
			name:  "course specific",
			event: Event{ScopeType: ScopeCourseSpecific, ScopeCollege: str("CCS"), ScopeCourse: str("BSCS")},
			want:  Scope{Type: ScopeCourseSpecific, College: "CCS", Course: "BSCS"},
		},
		{
			name:  "course specific without course widens with fallback flag",
			event: Event{ScopeType: ScopeCourseSpecific, ScopeCollege: str("CCS")},
			want:  Scope{Type: ScopeUniversityWide, Fallback: true},
		},
		{
			name:  "unknown scope treated as university wide",
			event: Event{ScopeType: "BOGUS"},
			want:  Scope{Type: ScopeUniversityWide},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Scope(); got != tt.want {
				t.Errorf("Scope() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScopeMatchesMonotonicBreadth(t *testing.T) {
	st := Student{College: "CCS", Course: "BSCS", Active: true}

	course := Scope{Type: ScopeCourseSpecific, College: "CCS", Course: "BSCS"}
	college := Scope{Type: ScopeCollegeWide, College: "CCS"}
	uni := Scope{Type: ScopeUniversityWide}

	// Course-eligible implies college-eligible implies university-eligible.
	if !course.Matches(st) || !college.Matches(st) || !uni.Matches(st) {
		t.Fatal("student inside course scope must match all wider scopes")
	}

	other := Student{College: "COE", Course: "BSCE", Active: true}
	if course.Matches(other) || college.Matches(other) {
		t.Error("student outside college must not match narrow scopes")
	}
	if !uni.Matches(other) {
		t.Error("university scope must match any active student")
	}

	inactive := Student{College: "CCS", Course: "BSCS"}
	if uni.Matches(inactive) {
		t.Error("inactive student must never be eligible")
	}
}

func TestScopeDescribe(t *testing.T) {
	if got := (Scope{Type: ScopeCollegeWide, College: "CCS"}).Describe(); got != "college:CCS" {
		t.Errorf("Describe() = %q", got)
	}
	if got := (Scope{Type: ScopeCourseSpecific, Course: "BSCS"}).Describe(); got != "course:BSCS" {
		t.Errorf("Describe() = %q", got)
	}
	if got := (Scope{Type: ScopeUniversityWide}).Describe(); got != "university" {
		t.Errorf("Describe() = %q", got)
	}
}
