package intake

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/abelbrown/sitrep/internal/audit"
	"github.com/abelbrown/sitrep/internal/classify"
	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/model"
	"github.com/abelbrown/sitrep/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store, *audit.Trail) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	trail, err := audit.NewTrail(s.DB())
	if err != nil {
		t.Fatalf("NewTrail failed: %v", err)
	}
	return NewService(s, trail), s, trail
}

func TestSubmit(t *testing.T) {
	svc, s, trail := newTestService(t)
	ctx := context.Background()

	collected := time.Now().UTC().Add(-time.Hour)
	r, err := svc.Submit(ctx, Submission{
		Type:           model.ReportSIGINT,
		Title:          "Intercept near checkpoint",
		Content:        []byte(`{"freq":462.5}`),
		Location:       &geo.Point{Lon: 30.5, Lat: 50.4},
		CollectionTime: &collected,
		Classification: classify.Secret,
		Reliability:    "B",
		Credibility:    "2",
	}, "analyst-1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if r.ID == "" {
		t.Error("expected an assigned id")
	}
	if r.Status != model.ReportSubmitted {
		t.Errorf("status = %s, want SUBMITTED", r.Status)
	}

	got, err := s.GetReport(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Title != "Intercept near checkpoint" {
		t.Errorf("title = %q", got.Title)
	}

	entries, err := trail.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "SUBMIT_REPORT" {
		t.Errorf("expected one SUBMIT_REPORT audit entry, got %+v", entries)
	}
}

func TestSubmitDefaultsClassification(t *testing.T) {
	svc, _, _ := newTestService(t)

	r, err := svc.Submit(context.Background(), Submission{
		Type:  model.ReportHUMINT,
		Title: "walk-in source",
	}, "analyst-1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if r.Classification != classify.Unclassified {
		t.Errorf("classification = %q, want UNCLASSIFIED", r.Classification)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		sub  Submission
		by   string
	}{
		{"unknown type", Submission{Type: "OSINT", Title: "t"}, "a1"},
		{"empty title", Submission{Type: model.ReportSIGINT}, "a1"},
		{"empty submitter", Submission{Type: model.ReportSIGINT, Title: "t"}, ""},
		{"bad classification", Submission{Type: model.ReportSIGINT, Title: "t", Classification: "RESTRICTED"}, "a1"},
		{"longitude out of range", Submission{Type: model.ReportSIGINT, Title: "t", Location: &geo.Point{Lon: 181, Lat: 0}}, "a1"},
		{"latitude out of range", Submission{Type: model.ReportSIGINT, Title: "t", Location: &geo.Point{Lon: 0, Lat: -91}}, "a1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tt.sub, tt.by); !errs.IsInvalidInput(err) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}
