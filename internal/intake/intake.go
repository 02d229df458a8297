// Package intake accepts raw intelligence reports into the system:
// validates the structured metadata, stamps identity and submission time,
// persists, and audits.
package intake

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/sitrep/internal/audit"
	"github.com/abelbrown/sitrep/internal/classify"
	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/logging"
	"github.com/abelbrown/sitrep/internal/model"
	"github.com/abelbrown/sitrep/internal/store"
)

// Submission is the caller-supplied part of a new report. Everything
// else (id, status, submission time) is stamped here.
type Submission struct {
	Type           model.ReportType
	Title          string
	Content        json.RawMessage
	Location       *geo.Point
	CollectionTime *time.Time
	Classification string
	Reliability    string
	Credibility    string
}

// Service accepts report submissions.
type Service struct {
	store *store.Store
	trail *audit.Trail
	now   func() time.Time
}

// NewService creates an intake service over the given store and audit trail.
func NewService(st *store.Store, trail *audit.Trail) *Service {
	return &Service{store: st, trail: trail, now: time.Now}
}

// Submit validates and persists a new report with status SUBMITTED.
func (s *Service) Submit(ctx context.Context, sub Submission, submittedBy string) (*model.Report, error) {
	if !model.ValidReportType(sub.Type) {
		return nil, errs.InvalidInput("unknown report type %q", sub.Type)
	}
	if sub.Title == "" {
		return nil, errs.InvalidInput("report title is required")
	}
	if submittedBy == "" {
		return nil, errs.InvalidInput("submitter is required")
	}
	if sub.Classification == "" {
		sub.Classification = classify.Unclassified
	}
	if !classify.Valid(sub.Classification) {
		return nil, errs.InvalidInput("unknown classification %q", sub.Classification)
	}
	if sub.Location != nil {
		if sub.Location.Lon < -180 || sub.Location.Lon > 180 || sub.Location.Lat < -90 || sub.Location.Lat > 90 {
			return nil, errs.InvalidInput("location out of range: lon %v, lat %v", sub.Location.Lon, sub.Location.Lat)
		}
	}

	r := &model.Report{
		ID:             uuid.NewString(),
		Type:           sub.Type,
		Title:          sub.Title,
		Content:        sub.Content,
		Location:       sub.Location,
		CollectionTime: sub.CollectionTime,
		SubmittedBy:    submittedBy,
		SubmittedAt:    s.now().UTC(),
		Classification: sub.Classification,
		Reliability:    sub.Reliability,
		Credibility:    sub.Credibility,
		Status:         model.ReportSubmitted,
	}

	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, err
	}

	if s.trail != nil {
		err := s.trail.Append(ctx, submittedBy, "SUBMIT_REPORT", "REPORT", r.ID, map[string]any{
			"type":           string(r.Type),
			"classification": r.Classification,
		})
		if err != nil {
			logging.Error("audit append failed after report submission", "report", r.ID, "error", err)
		}
	}

	logging.Info("report submitted", "report", r.ID, "type", r.Type, "by", submittedBy)
	return r, nil
}
