// Package fusion implements the fusion engine: it correlates a named set
// of raw reports into a single fused event with a computed confidence
// score and a provenance trail.
//
// Fusion is triggered explicitly by an operator naming a report set; the
// engine never scans for candidates on its own (that is the correlation
// index's job). Persistence of the event, its provenance edges, and the
// source report transitions is a single store transaction, so a report can
// be claimed by at most one fusion, ever.
package fusion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
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

// AlgorithmID identifies the fusion algorithm on provenance edges.
const AlgorithmID = "WEIGHTED_CORRELATION"

// provenanceWeight is the fixed fusion-link weight. Provenance records
// which reports contributed, not how much; the per-report confidence
// weight is a separate quantity.
const provenanceWeight = 1.0

// baseReportScore is the per-report contribution baseline for submitted
// reports. Fixed; not derived from report content.
const baseReportScore = 0.7

// Activity is one recent fusion action, kept for operator transparency.
type Activity struct {
	Time       time.Time
	EventID    string
	ReportIDs  []string
	Confidence float64
}

const maxActivityEntries = 50

// Engine fuses report sets into events. Stateless between calls apart
// from the activity ring buffer; safe for concurrent use.
type Engine struct {
	store *store.Store
	trail *audit.Trail
	now   func() time.Time

	mu             sync.Mutex
	recentActivity []Activity
	activityIndex  int
}

// NewEngine creates a fusion engine over the given store and audit trail.
func NewEngine(st *store.Store, trail *audit.Trail) *Engine {
	return &Engine{
		store: st,
		trail: trail,
		now:   time.Now,
	}
}

// FuseReports correlates the named reports into one fused event.
//
// Preconditions: at least two distinct report ids; every id resolves to
// an existing report with status SUBMITTED. A report already claimed by
// another fusion fails the whole request with CONFLICT; this is the
// at-most-one-fusion guarantee. On any failure nothing is persisted.
//
// The caller is responsible for publishing a "new event" notification;
// the engine only returns the created event.
func (e *Engine) FuseReports(ctx context.Context, reportIDs []string, fusedBy string) (*model.Event, error) {
	ids := dedup(reportIDs)
	if len(ids) < 2 {
		return nil, errs.InvalidInput("fusion requires at least 2 distinct reports, got %d", len(ids))
	}

	// One consistent snapshot of the whole set.
	reports, err := e.store.GetReportsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range reports {
		if r.Status != model.ReportSubmitted {
			return nil, errs.Conflict("report %s is %s, only SUBMITTED reports can be fused", r.ID, r.Status)
		}
	}

	now := e.now().UTC()
	ev := e.buildEvent(reports, fusedBy, now)

	edges := make([]model.FusionProvenance, 0, len(reports))
	for _, r := range reports {
		edges = append(edges, model.FusionProvenance{
			ID:             uuid.NewString(),
			EventID:        ev.ID,
			SourceReportID: r.ID,
			Algorithm:      AlgorithmID,
			Weight:         provenanceWeight,
			CreatedAt:      now,
		})
	}

	// Event + provenance + report transitions land atomically; a guard
	// miss inside means a concurrent fusion won the race.
	if err := e.store.CreateFusedEvent(ctx, ev, edges, ids); err != nil {
		return nil, err
	}

	if e.trail != nil {
		if err := e.trail.Append(ctx, fusedBy, "FUSE_REPORTS", "EVENT", ev.ID, map[string]any{
			"report_ids": ids,
			"confidence": ev.Confidence,
		}); err != nil {
			logging.Error("audit append failed after fusion", "event", ev.ID, "error", err)
		}
	}

	e.addActivity(Activity{Time: now, EventID: ev.ID, ReportIDs: ids, Confidence: ev.Confidence})
	logging.Info("fused reports into event",
		"event", ev.ID,
		"report_count", len(ids),
		"confidence", fmt.Sprintf("%.3f", ev.Confidence))

	return ev, nil
}

// buildEvent derives the representative event from the report snapshot:
// unweighted centroid over located reports, [min, max] span over
// timestamped reports, title from the distinct disciplines involved, and
// the weighted confidence score.
func (e *Engine) buildEvent(reports []model.Report, fusedBy string, now time.Time) *model.Event {
	var points []geo.Point
	var times []time.Time
	for _, r := range reports {
		if r.Location != nil {
			points = append(points, *r.Location)
		}
		if r.CollectionTime != nil {
			times = append(times, *r.CollectionTime)
		}
	}

	ev := &model.Event{
		ID:          uuid.NewString(),
		Type:        model.EventTypeFused,
		Title:       fusionTitle(reports),
		Description: fusionDescription(reports),
		Confidence:  confidenceScore(reports, now),
		Sensitivity: classify.Secret,
		Status:      model.EventPending,
		CreatedBy:   fusedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if centroid, ok := geo.Centroid(points); ok {
		ev.Location = &centroid
	}
	if len(times) > 0 {
		start, end := times[0], times[0]
		for _, t := range times[1:] {
			if t.Before(start) {
				start = t
			}
			if t.After(end) {
				end = t
			}
		}
		ev.StartTime = &start
		ev.EndTime = &end
	}
	return ev
}

func fusionTitle(reports []model.Report) string {
	types := distinctTypes(reports)
	return fmt.Sprintf("Fused Intelligence: %s Correlation", strings.Join(types, " + "))
}

func fusionDescription(reports []model.Report) string {
	titles := make([]string, len(reports))
	for i, r := range reports {
		titles[i] = r.Title
	}
	return fmt.Sprintf("Fused from %d reports: %s", len(reports), strings.Join(titles, ", "))
}

func distinctTypes(reports []model.Report) []string {
	seen := make(map[string]bool)
	var types []string
	for _, r := range reports {
		t := string(r.Type)
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	sort.Strings(types)
	return types
}

func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// addActivity adds an entry to the ring buffer.
func (e *Engine) addActivity(a Activity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recentActivity == nil {
		e.recentActivity = make([]Activity, maxActivityEntries)
	}
	e.recentActivity[e.activityIndex] = a
	e.activityIndex = (e.activityIndex + 1) % maxActivityEntries
}

// RecentActivity returns recent fusion actions, newest first.
func (e *Engine) RecentActivity(count int) []Activity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recentActivity == nil {
		return nil
	}
	if count > maxActivityEntries {
		count = maxActivityEntries
	}
	result := make([]Activity, 0, count)
	idx := (e.activityIndex - 1 + maxActivityEntries) % maxActivityEntries
	for i := 0; i < count; i++ {
		a := e.recentActivity[idx]
		if a.Time.IsZero() {
			break
		}
		result = append(result, a)
		idx = (idx - 1 + maxActivityEntries) % maxActivityEntries
	}
	return result
}
