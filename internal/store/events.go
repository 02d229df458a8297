package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/model"
)

const eventColumns = `id, type, title, description, start_time, end_time, lon, lat,
	area_of_interest, confidence, sensitivity, status, created_by, approved_by,
	created_at, updated_at`

// CreateFusedEvent persists the fused event, its provenance edges, and the
// SUBMITTED→FUSED transition of every source report as one transaction.
// Either all rows land or none do.
//
// The report updates are guarded on status = 'SUBMITTED'; a guard miss
// means another fusion claimed a report between the engine's snapshot read
// and this commit, and the whole transaction rolls back with CONFLICT.
func (s *Store) CreateFusedEvent(ctx context.Context, ev *model.Event, edges []model.FusionProvenance, reportIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Store(err, "begin fusion transaction")
	}
	// Rollback is a no-op after commit.
	defer tx.Rollback()

	if err := insertEvent(ctx, tx, ev); err != nil {
		return errs.Store(err, "insert event %s", ev.ID)
	}

	for _, e := range edges {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fusion_provenance (id, event_id, source_report_id, algorithm, weight, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, e.EventID, e.SourceReportID, e.Algorithm, e.Weight, e.CreatedAt)
		if err != nil {
			return errs.Store(err, "insert provenance for report %s", e.SourceReportID)
		}
	}

	for _, id := range reportIDs {
		res, err := tx.ExecContext(ctx,
			"UPDATE reports SET status = 'FUSED' WHERE id = ? AND status = 'SUBMITTED'", id)
		if err != nil {
			return errs.Store(err, "mark report %s fused", id)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errs.Store(err, "rows affected for report %s", id)
		}
		if affected == 0 {
			// Claimed by a concurrent fusion (or never SUBMITTED).
			return errs.Conflict("report %s is no longer available for fusion", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Store(err, "commit fusion transaction")
	}
	return nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev *model.Event) error {
	var lon, lat any
	if ev.Location != nil {
		lon, lat = ev.Location.Lon, ev.Location.Lat
	}
	var start, end any
	if ev.StartTime != nil {
		start = *ev.StartTime
	}
	if ev.EndTime != nil {
		end = *ev.EndTime
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, type, title, description, start_time, end_time, lon, lat,
			area_of_interest, confidence, sensitivity, status, created_by, approved_by,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Type, ev.Title, nullableString(ev.Description), start, end, lon, lat,
		nullableString(string(ev.AreaOfInterest)), ev.Confidence, ev.Sensitivity,
		string(ev.Status), ev.CreatedBy, nullableString(ev.ApprovedBy),
		ev.CreatedAt, ev.UpdatedAt)
	return err
}

// GetEvent retrieves a single event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("event %s not found", id)
	}
	if err != nil {
		return nil, errs.Store(err, "get event %s", id)
	}
	return ev, nil
}

// EventFilters narrows ListEvents. Zero values are no-ops.
type EventFilters struct {
	Status model.EventStatus
	Type   string
	Limit  uint64
	Offset uint64
}

// ListEvents retrieves events ordered by creation time, newest first.
func (s *Store) ListEvents(ctx context.Context, f EventFilters) ([]model.Event, error) {
	if f.Limit == 0 {
		f.Limit = 50
	}
	builder := sq.Select(eventColumns).From("events").
		OrderBy("created_at DESC").
		Limit(f.Limit).Offset(f.Offset)
	if f.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Type != "" {
		builder = builder.Where(sq.Eq{"type": f.Type})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errs.Store(err, "build event query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Store(err, "query events")
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, errs.Store(err, "scan event")
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err, "iterate events")
	}
	return events, nil
}

// TransitionEvent moves an event from one status to another and appends
// the adjudication decision in the same transaction. The UPDATE is guarded
// on the expected current status: zero rows affected means either the
// event does not exist (NOT_FOUND) or it already left the expected state
// (CONFLICT). A prior decision is never silently overwritten.
func (s *Store) TransitionEvent(ctx context.Context, eventID string, from, to model.EventStatus, approvedBy string, dec *model.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Store(err, "begin decision transaction")
	}
	defer tx.Rollback()

	var res sql.Result
	if approvedBy != "" {
		res, err = tx.ExecContext(ctx,
			"UPDATE events SET status = ?, approved_by = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(to), approvedBy, time.Now().UTC(), eventID, string(from))
	} else {
		res, err = tx.ExecContext(ctx,
			"UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(to), time.Now().UTC(), eventID, string(from))
	}
	if err != nil {
		return errs.Store(err, "transition event %s", eventID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errs.Store(err, "rows affected for event %s", eventID)
	}
	if affected == 0 {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT status FROM events WHERE id = ?", eventID).Scan(&current)
		if err == sql.ErrNoRows {
			return errs.NotFound("event %s not found", eventID)
		}
		if err != nil {
			return errs.Store(err, "check event %s", eventID)
		}
		return errs.Conflict("event %s is %s, expected %s", eventID, current, from)
	}

	if err := insertDecisionTx(ctx, tx, dec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Store(err, "commit decision transaction")
	}
	return nil
}

// ProvenanceForEvent returns all provenance edges of an event.
func (s *Store) ProvenanceForEvent(ctx context.Context, eventID string) ([]model.FusionProvenance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, source_report_id, algorithm, weight, created_at
		FROM fusion_provenance WHERE event_id = ?
	`, eventID)
	if err != nil {
		return nil, errs.Store(err, "query provenance for event %s", eventID)
	}
	defer rows.Close()

	var edges []model.FusionProvenance
	for rows.Next() {
		var e model.FusionProvenance
		if err := rows.Scan(&e.ID, &e.EventID, &e.SourceReportID, &e.Algorithm, &e.Weight, &e.CreatedAt); err != nil {
			return nil, errs.Store(err, "scan provenance edge")
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err, "iterate provenance")
	}
	return edges, nil
}

// ProvenanceForReport returns the provenance edge claiming a report, or
// nil if the report was never fused.
func (s *Store) ProvenanceForReport(ctx context.Context, reportID string) (*model.FusionProvenance, error) {
	var e model.FusionProvenance
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, source_report_id, algorithm, weight, created_at
		FROM fusion_provenance WHERE source_report_id = ?
	`, reportID).Scan(&e.ID, &e.EventID, &e.SourceReportID, &e.Algorithm, &e.Weight, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Store(err, "query provenance for report %s", reportID)
	}
	return &e, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var ev model.Event
	var status string
	var description, aoi, approvedBy sql.NullString
	var lon, lat sql.NullFloat64
	var start, end sql.NullTime

	err := row.Scan(&ev.ID, &ev.Type, &ev.Title, &description, &start, &end, &lon, &lat,
		&aoi, &ev.Confidence, &ev.Sensitivity, &status, &ev.CreatedBy, &approvedBy,
		&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ev.Status = model.EventStatus(status)
	ev.Description = description.String
	ev.ApprovedBy = approvedBy.String
	if aoi.Valid {
		ev.AreaOfInterest = []byte(aoi.String)
	}
	if lon.Valid && lat.Valid {
		ev.Location = &geo.Point{Lon: lon.Float64, Lat: lat.Float64}
	}
	if start.Valid {
		t := start.Time
		ev.StartTime = &t
	}
	if end.Valid {
		t := end.Time
		ev.EndTime = &t
	}
	return &ev, nil
}
