package attendance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"campusattend/internal/metrics"
	"campusattend/internal/roster"
)

// RecordStore is the persistence contract the service needs. *Repository
// satisfies it; tests use an in-memory fake.
type RecordStore interface {
	Latest(ctx context.Context, eventID, studentID string) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, eventID, recordID string) (*Record, error)
	ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]Record, error)
	SoftDelete(ctx context.Context, recordID string, at time.Time) error
}

// Catalog is the read-only view of the portal's event/student data.
type Catalog interface {
	GetEvent(ctx context.Context, id string) (*roster.Event, error)
	GetStudentByBarcode(ctx context.Context, barcode string) (*roster.Student, error)
	CountEligible(ctx context.Context, sc roster.Scope) (int, error)
	ListEligible(ctx context.Context, sc roster.Scope) ([]roster.Student, error)
}

// StatsCache caches computed stats with a TTL and explicit invalidation.
type StatsCache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, val any)
	Invalidate(ctx context.Context, key string)
}

// ScanResult is returned to the scanning device after a successful toggle.
type ScanResult struct {
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name"`
	Action      ScanAction `json:"action"`
	Timestamp   time.Time  `json:"timestamp"`
	Record      Record     `json:"record"`
}

// Stats is the scope-aware attendance summary for one event.
type Stats struct {
	TotalEligible int    `json:"total_eligible"`
	Attended      int    `json:"attended"`
	Percentage    int    `json:"percentage"`
	Scope         string `json:"scope"`
}

// RecordPatch carries the admin override fields. Omitted (nil) fields keep
// the stored values.
type RecordPatch struct {
	TimeIn  *time.Time `json:"time_in"`
	TimeOut *time.Time `json:"time_out"`
}

// Service implements scan reconciliation, aggregation, and the
// administrative edit path over the record store.
type Service struct {
	records   RecordStore
	catalog   Catalog
	cache     StatsCache
	pageLimit int
	log       *zap.Logger
	now       func() time.Time
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) bool { return false }
func (noopCache) Set(context.Context, string, any)      {}
func (noopCache) Invalidate(context.Context, string)    {}

// NewService wires the service. pageLimit is the store's read ceiling.
func NewService(records RecordStore, catalog Catalog, cache StatsCache, pageLimit int, log *zap.Logger) *Service {
	if pageLimit <= 0 {
		pageLimit = 1000
	}
	if cache == nil {
		cache = noopCache{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		records:   records,
		catalog:   catalog,
		cache:     cache,
		pageLimit: pageLimit,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func statsKey(eventID string) string { return "stats:" + eventID }

// RecordScan toggles attendance for the scanned student at the event. The
// direction is inferred from the latest stored record, never from the device.
func (s *Service) RecordScan(ctx context.Context, eventID, barcode string) (ScanResult, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return ScanResult{}, err
	}
	if ev == nil {
		return ScanResult{}, ErrEventNotFound
	}
	st, err := s.catalog.GetStudentByBarcode(ctx, barcode)
	if err != nil {
		return ScanResult{}, err
	}
	if st == nil {
		return ScanResult{}, ErrStudentNotFound
	}

	res, err := s.toggle(ctx, ev, st)
	if errors.Is(err, ErrConflict) {
		// Two devices raced the read-decide-write pass for the same pair.
		// The open-record index rejected one side; a single rerun observes
		// the winner's row and resolves to the complementary action.
		metrics.ScanConflicts.Inc()
		s.log.Warn("scan conflict, retrying",
			zap.String("event_id", ev.ID), zap.String("student_id", st.ID))
		res, err = s.toggle(ctx, ev, st)
	}
	if err != nil {
		return ScanResult{}, err
	}

	s.cache.Invalidate(ctx, statsKey(ev.ID))
	metrics.Scans.WithLabelValues(string(res.Action)).Inc()
	return res, nil
}

func (s *Service) toggle(ctx context.Context, ev *roster.Event, st *roster.Student) (ScanResult, error) {
	latest, err := s.records.Latest(ctx, ev.ID, st.ID)
	if err != nil {
		return ScanResult{}, err
	}
	now := s.now()

	var rec Record
	action := Decide(latest)
	switch action {
	case ActionIn:
		rec, err = s.records.Insert(ctx, Record{
			EventID:   ev.ID,
			StudentID: st.ID,
			TimeIn:    &now,
			Status:    StatusFor(&now, nil, ev.AttendanceType),
			Mode:      ModeSignIn,
			ScannedAt: &now,
		})
	case ActionOut:
		upd := *latest
		// Promote legacy notes-encoded times to the structured columns on
		// the way out; the serialized form is read-only compatibility.
		in, _ := upd.EffectiveTimes()
		upd.TimeIn = in
		upd.TimeOut = &now
		upd.Status = StatusFor(in, &now, ev.AttendanceType)
		upd.ScannedAt = &now
		rec, err = s.records.Update(ctx, upd)
	}
	if err != nil {
		return ScanResult{}, err
	}
	rec.StudentName = st.Name
	return ScanResult{
		StudentID:   st.ID,
		StudentName: st.Name,
		Action:      action,
		Timestamp:   now,
		Record:      rec,
	}, nil
}

// fetchAll pages through the event's records past the store's read ceiling.
// The loop stops on a short or empty page; a page exactly at the ceiling
// forces one more read. The pages are not one transactional snapshot.
func (s *Service) fetchAll(ctx context.Context, eventID string) ([]Record, error) {
	var all []Record
	pages := 0
	for offset := 0; ; offset += s.pageLimit {
		page, err := s.records.ListByEvent(ctx, eventID, s.pageLimit, offset)
		if err != nil {
			return nil, err
		}
		pages++
		all = append(all, page...)
		if len(page) < s.pageLimit {
			break
		}
	}
	metrics.AggregatePages.Observe(float64(pages))
	return all, nil
}

// ListEventRecords returns the latest row per student with display statuses.
func (s *Service) ListEventRecords(ctx context.Context, eventID string) ([]Record, int, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	if ev == nil {
		return nil, 0, ErrEventNotFound
	}
	rows, err := s.fetchAll(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	retained := LatestPerStudent(rows)
	for i := range retained {
		retained[i].Status = Classify(retained[i])
	}
	return retained, len(retained), nil
}

// ComputeEventStats derives the scope-aware attendance summary.
func (s *Service) ComputeEventStats(ctx context.Context, eventID string) (Stats, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return Stats{}, err
	}
	if ev == nil {
		return Stats{}, ErrEventNotFound
	}

	var cached Stats
	if s.cache.Get(ctx, statsKey(ev.ID), &cached) {
		return cached, nil
	}
	started := s.now()

	sc := ev.Scope()
	if sc.Fallback {
		s.log.Warn("event scope misconfigured, counting university-wide",
			zap.String("event_id", ev.ID), zap.String("scope_type", string(ev.ScopeType)))
	}
	total, err := s.catalog.CountEligible(ctx, sc)
	if err != nil {
		return Stats{}, err
	}
	rows, err := s.fetchAll(ctx, eventID)
	if err != nil {
		return Stats{}, err
	}
	attended := CountAttended(LatestPerStudent(rows), ev.AttendanceType)

	stats := Stats{
		TotalEligible: total,
		Attended:      attended,
		Percentage:    Percentage(attended, total),
		Scope:         sc.Describe(),
	}
	s.cache.Set(ctx, statsKey(ev.ID), stats)
	metrics.ObserveStats(s.now().Sub(started))
	return stats, nil
}

// ListAbsentees returns eligible students with no attended record.
func (s *Service) ListAbsentees(ctx context.Context, eventID string) ([]roster.Student, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	eligible, err := s.catalog.ListEligible(ctx, ev.Scope())
	if err != nil {
		return nil, err
	}
	rows, err := s.fetchAll(ctx, eventID)
	if err != nil {
		return nil, err
	}
	attended := make(map[string]bool)
	for _, r := range LatestPerStudent(rows) {
		if Completed(r, ev.AttendanceType) {
			attended[r.StudentID] = true
		}
	}
	absent := make([]roster.Student, 0, len(eligible))
	for _, st := range eligible {
		if !attended[st.ID] {
			absent = append(absent, st)
		}
	}
	return absent, nil
}

// UpdateRecord is the administrative override: caller-supplied times win,
// omitted fields keep stored values, status is recomputed under the event's
// attendance type. It deliberately bypasses the toggle state machine.
func (s *Service) UpdateRecord(ctx context.Context, eventID, recordID string, patch RecordPatch) (Record, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		return Record{}, err
	}
	if ev == nil {
		return Record{}, ErrEventNotFound
	}
	existing, err := s.records.Get(ctx, eventID, recordID)
	if err != nil {
		return Record{}, err
	}
	if existing == nil {
		return Record{}, ErrRecordNotFound
	}

	in, out := existing.EffectiveTimes()
	if patch.TimeIn != nil {
		in = patch.TimeIn
	}
	if patch.TimeOut != nil {
		out = patch.TimeOut
	}
	if out != nil && in == nil {
		return Record{}, ErrInvalidPatch
	}

	now := s.now()
	upd := *existing
	upd.TimeIn = in
	upd.TimeOut = out
	upd.Status = StatusFor(in, out, ev.AttendanceType)
	upd.ScannedAt = &now
	rec, err := s.records.Update(ctx, upd)
	if err != nil {
		return Record{}, err
	}
	rec.StudentName = existing.StudentName

	s.cache.Invalidate(ctx, statsKey(ev.ID))
	metrics.RecordEdits.Inc()
	s.log.Info("record updated",
		zap.String("event_id", eventID), zap.String("record_id", recordID))
	return rec, nil
}

// SoftDeleteRecord stamps the record deleted; it stays out of every list and
// stat from then on but is never physically erased.
func (s *Service) SoftDeleteRecord(ctx context.Context, eventID, recordID string) error {
	existing, err := s.records.Get(ctx, eventID, recordID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrRecordNotFound
	}
	if err := s.records.SoftDelete(ctx, recordID, s.now()); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, statsKey(eventID))
	metrics.RecordEdits.Inc()
	s.log.Info("record soft-deleted",
		zap.String("event_id", eventID), zap.String("record_id", recordID))
	return nil
}
