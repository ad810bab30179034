package attendance

import (
	"testing"
	"time"

	"campusattend/internal/roster"
)

func TestLatestPerStudent(t *testing.T) {
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	recs := []Record{
		{ID: "a1", StudentID: "s1", Seq: 1, CreatedAt: base},
		{ID: "a2", StudentID: "s1", Seq: 2, CreatedAt: base.Add(time.Hour)},
		{ID: "b1", StudentID: "s2", Seq: 3, CreatedAt: base},
	}
	got := LatestPerStudent(recs)
	if len(got) != 2 {
		t.Fatalf("retained %d rows, want 2", len(got))
	}
	byStudent := map[string]Record{}
	for _, r := range got {
		byStudent[r.StudentID] = r
	}
	if byStudent["s1"].ID != "a2" {
		t.Errorf("s1 retained %q, want a2", byStudent["s1"].ID)
	}
}

func TestLatestPerStudentTimestampTieUsesSeq(t *testing.T) {
	// Rapid scanning can land two rows on the same timestamp; seq must
	// still produce one unambiguous latest.
	at := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	recs := []Record{
		{ID: "old", StudentID: "s1", Seq: 10, CreatedAt: at},
		{ID: "new", StudentID: "s1", Seq: 11, CreatedAt: at},
	}
	got := LatestPerStudent(recs)
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("retained %+v, want the higher-seq row", got)
	}
}

func TestCountAttendedMatchesManualCount(t *testing.T) {
	base := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	out := base.Add(2 * time.Hour)
	recs := []Record{
		{StudentID: "s1", TimeIn: tptr(base), TimeOut: tptr(out)},
		{StudentID: "s2", TimeIn: tptr(base)},
		{StudentID: "s3"},
		{StudentID: "s4", Notes: sptr(`{"timeIn":"2024-02-01T08:00:00Z","timeOut":"2024-02-01T10:00:00Z"}`)},
	}

	for _, at := range []roster.AttendanceType{roster.AttendInOnly, roster.AttendInOut} {
		manual := 0
		for _, r := range recs {
			in, o := r.EffectiveTimes()
			if in != nil && (at == roster.AttendInOnly || o != nil) {
				manual++
			}
		}
		if got := CountAttended(recs, at); got != manual {
			t.Errorf("CountAttended(%s) = %d, manual count = %d", at, got, manual)
		}
	}
}

func TestClassify(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name string
		rec  Record
		want Status
	}{
		{"both times", Record{TimeIn: tptr(now), TimeOut: tptr(now)}, StatusPresent},
		{"in only", Record{TimeIn: tptr(now)}, StatusSignedInOnly},
		{"neither", Record{}, StatusIncomplete},
		{"legacy both", Record{Notes: sptr(`{"timeIn":"2024-02-01T08:00:00Z","timeOut":"2024-02-01T10:00:00Z"}`)}, StatusPresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rec); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		attended, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{40, 40, 100},
		{1, 1500, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.attended, tt.total); got != tt.want {
			t.Errorf("Percentage(%d, %d) = %d, want %d", tt.attended, tt.total, got, tt.want)
		}
	}
}
