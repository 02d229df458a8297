package fusion

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/sitrep/internal/classify"
	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/model"
	"github.com/abelbrown/sitrep/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewEngine(s, nil), s
}

func submitReport(t *testing.T, s *store.Store, reportType model.ReportType, reliability, credibility string, loc geo.Point, collected time.Time) *model.Report {
	t.Helper()
	c := collected
	r := &model.Report{
		ID:             uuid.NewString(),
		Type:           reportType,
		Title:          "report " + string(reportType),
		Location:       &loc,
		CollectionTime: &c,
		SubmittedBy:    "analyst-1",
		SubmittedAt:    time.Now().UTC(),
		Classification: classify.Secret,
		Reliability:    reliability,
		Credibility:    credibility,
		Status:         model.ReportSubmitted,
	}
	if err := s.CreateReport(context.Background(), r); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}
	return r
}

func TestFuseReports(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	engine.now = func() time.Time { return now }

	// Two fresh, top-rated reports of different disciplines: every weight
	// factor is 1.0 and the score lands exactly on the 0.7 base.
	r1 := submitReport(t, s, model.ReportSIGINT, "A", "1",
		geo.Point{Lon: 30.50, Lat: 50.40}, now.Add(-30*time.Minute))
	r2 := submitReport(t, s, model.ReportSOCMINT, "A", "1",
		geo.Point{Lon: 30.60, Lat: 50.50}, now.Add(-10*time.Minute))

	ev, err := engine.FuseReports(ctx, []string{r1.ID, r2.ID}, "analyst-1")
	if err != nil {
		t.Fatalf("FuseReports failed: %v", err)
	}

	if ev.Type != model.EventTypeFused {
		t.Errorf("type = %s, want FUSED_INTELLIGENCE", ev.Type)
	}
	if ev.Status != model.EventPending {
		t.Errorf("status = %s, want PENDING", ev.Status)
	}
	if ev.Sensitivity != classify.Secret {
		t.Errorf("sensitivity = %s, want SECRET", ev.Sensitivity)
	}
	if ev.Title != "Fused Intelligence: SIGINT + SOCMINT Correlation" {
		t.Errorf("title = %q", ev.Title)
	}
	if math.Abs(ev.Confidence-0.7) > 1e-9 {
		t.Errorf("confidence = %v, want 0.7", ev.Confidence)
	}

	if ev.Location == nil {
		t.Fatal("expected a centroid location")
	}
	if math.Abs(ev.Location.Lon-30.55) > 1e-9 || math.Abs(ev.Location.Lat-50.45) > 1e-9 {
		t.Errorf("centroid = %+v, want {30.55 50.45}", ev.Location)
	}

	if ev.StartTime == nil || !ev.StartTime.Equal(now.Add(-30*time.Minute)) {
		t.Errorf("start = %v, want earliest collection time", ev.StartTime)
	}
	if ev.EndTime == nil || !ev.EndTime.Equal(now.Add(-10*time.Minute)) {
		t.Errorf("end = %v, want latest collection time", ev.EndTime)
	}

	// Source reports are claimed.
	for _, id := range []string{r1.ID, r2.ID} {
		r, err := s.GetReport(ctx, id)
		if err != nil {
			t.Fatalf("GetReport failed: %v", err)
		}
		if r.Status != model.ReportFused {
			t.Errorf("report %s status = %s, want FUSED", id, r.Status)
		}
	}

	edges, err := s.ProvenanceForEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ProvenanceForEvent failed: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("got %d provenance edges, want 2", len(edges))
	}
	for _, e := range edges {
		if e.Algorithm != AlgorithmID {
			t.Errorf("algorithm = %q, want %q", e.Algorithm, AlgorithmID)
		}
		if e.Weight != 1.0 {
			t.Errorf("provenance weight = %v, want 1.0", e.Weight)
		}
	}
}

func TestFuseReportsTooFew(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	r := submitReport(t, s, model.ReportSIGINT, "A", "1", geo.Point{}, now)

	_, err := engine.FuseReports(ctx, []string{r.ID}, "analyst-1")
	if !errs.IsInvalidInput(err) {
		t.Fatalf("single id: expected INVALID_INPUT, got %v", err)
	}

	// Duplicate ids collapse to one distinct report.
	_, err = engine.FuseReports(ctx, []string{r.ID, r.ID}, "analyst-1")
	if !errs.IsInvalidInput(err) {
		t.Fatalf("duplicate ids: expected INVALID_INPUT, got %v", err)
	}

	// Nothing persisted.
	got, err := s.GetReport(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Status != model.ReportSubmitted {
		t.Errorf("status = %s, want SUBMITTED", got.Status)
	}
	events, err := s.ListEvents(ctx, store.EventFilters{})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestFuseReportsMissing(t *testing.T) {
	engine, s := newTestEngine(t)
	now := time.Now().UTC()
	r := submitReport(t, s, model.ReportSIGINT, "A", "1", geo.Point{}, now)

	_, err := engine.FuseReports(context.Background(), []string{r.ID, "ghost"}, "analyst-1")
	if !errs.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestFuseReportsAlreadyFused(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	r1 := submitReport(t, s, model.ReportSIGINT, "A", "1", geo.Point{}, now)
	r2 := submitReport(t, s, model.ReportSOCMINT, "A", "1", geo.Point{}, now)
	r3 := submitReport(t, s, model.ReportHUMINT, "A", "1", geo.Point{}, now)

	if _, err := engine.FuseReports(ctx, []string{r1.ID, r2.ID}, "analyst-1"); err != nil {
		t.Fatalf("first fusion failed: %v", err)
	}

	_, err := engine.FuseReports(ctx, []string{r2.ID, r3.ID}, "analyst-2")
	if !errs.IsConflict(err) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	r, err := s.GetReport(ctx, r3.ID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if r.Status != model.ReportSubmitted {
		t.Errorf("r3 status = %s, want SUBMITTED after failed fusion", r.Status)
	}
}

func TestFuseReportsWithoutMetadata(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()

	// No location, no collection time, no ratings: fusion still works on
	// midpoint weights, producing an event without geometry or span.
	mk := func(reportType model.ReportType) *model.Report {
		r := &model.Report{
			ID:             uuid.NewString(),
			Type:           reportType,
			Title:          "bare " + string(reportType),
			SubmittedBy:    "analyst-1",
			SubmittedAt:    time.Now().UTC(),
			Classification: classify.Secret,
			Status:         model.ReportSubmitted,
		}
		if err := s.CreateReport(ctx, r); err != nil {
			t.Fatalf("CreateReport failed: %v", err)
		}
		return r
	}
	r1, r2 := mk(model.ReportHUMINT), mk(model.ReportSIGINT)

	ev, err := engine.FuseReports(ctx, []string{r1.ID, r2.ID}, "analyst-1")
	if err != nil {
		t.Fatalf("FuseReports failed: %v", err)
	}
	if ev.Location != nil {
		t.Errorf("expected no centroid, got %+v", ev.Location)
	}
	if ev.StartTime != nil || ev.EndTime != nil {
		t.Errorf("expected no time span, got %v-%v", ev.StartTime, ev.EndTime)
	}
	if math.Abs(ev.Confidence-0.7) > 1e-9 {
		t.Errorf("confidence = %v, want 0.7", ev.Confidence)
	}
}

func TestRecentActivity(t *testing.T) {
	engine, s := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if got := engine.RecentActivity(10); got != nil {
		t.Errorf("expected no activity on a fresh engine, got %d", len(got))
	}

	r1 := submitReport(t, s, model.ReportSIGINT, "A", "1", geo.Point{}, now)
	r2 := submitReport(t, s, model.ReportSOCMINT, "A", "1", geo.Point{}, now)
	ev, err := engine.FuseReports(ctx, []string{r1.ID, r2.ID}, "analyst-1")
	if err != nil {
		t.Fatalf("FuseReports failed: %v", err)
	}

	got := engine.RecentActivity(10)
	if len(got) != 1 {
		t.Fatalf("got %d activity entries, want 1", len(got))
	}
	if got[0].EventID != ev.ID {
		t.Errorf("activity event = %s, want %s", got[0].EventID, ev.ID)
	}
}
