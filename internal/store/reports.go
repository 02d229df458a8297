package store

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/geo"
	"github.com/abelbrown/sitrep/internal/model"
)

const reportColumns = `id, type, title, content, lon, lat, collection_time,
	submitted_by, submitted_at, classification, reliability, credibility, status`

// CreateReport persists a new raw report. Status defaults to SUBMITTED
// when unset.
func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	if r.Status == "" {
		r.Status = model.ReportSubmitted
	}
	var lon, lat any
	if r.Location != nil {
		lon, lat = r.Location.Lon, r.Location.Lat
	}
	var collected any
	if r.CollectionTime != nil {
		collected = *r.CollectionTime
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (id, type, title, content, lon, lat, collection_time,
			submitted_by, submitted_at, classification, reliability, credibility, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Type), r.Title, nullableString(string(r.Content)), lon, lat, collected,
		r.SubmittedBy, r.SubmittedAt, r.Classification, nullableString(r.Reliability),
		nullableString(r.Credibility), string(r.Status))
	if err != nil {
		return errs.Store(err, "insert report %s", r.ID)
	}
	return nil
}

// GetReport retrieves a single report by id.
func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id = ?", id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("report %s not found", id)
	}
	if err != nil {
		return nil, errs.Store(err, "get report %s", id)
	}
	return r, nil
}

// GetReportsByIDs loads the referenced reports in one consistent read.
// Missing ids are reported as NOT_FOUND naming the first absent id.
func (s *Store) GetReportsByIDs(ctx context.Context, ids []string) ([]model.Report, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+reportColumns+" FROM reports WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, errs.Store(err, "query reports by ids")
	}
	defer rows.Close()

	reports, err := scanReports(rows)
	if err != nil {
		return nil, errs.Store(err, "scan reports")
	}

	if len(reports) != len(ids) {
		found := make(map[string]bool, len(reports))
		for _, r := range reports {
			found[r.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, errs.NotFound("report %s not found", id)
			}
		}
	}
	return reports, nil
}

// ReportFilters narrows ListReports. Zero values are no-ops.
type ReportFilters struct {
	Type        model.ReportType
	SubmittedBy string
	Status      model.ReportStatus
	Limit       uint64
	Offset      uint64
}

// ListReports retrieves reports ordered by submission time, newest first.
func (s *Store) ListReports(ctx context.Context, f ReportFilters) ([]model.Report, error) {
	if f.Limit == 0 {
		f.Limit = 50
	}
	builder := sq.Select(reportColumns).From("reports").
		OrderBy("submitted_at DESC").
		Limit(f.Limit).Offset(f.Offset)
	if f.Type != "" {
		builder = builder.Where(sq.Eq{"type": string(f.Type)})
	}
	if f.SubmittedBy != "" {
		builder = builder.Where(sq.Eq{"submitted_by": f.SubmittedBy})
	}
	if f.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(f.Status)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errs.Store(err, "build report query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Store(err, "query reports")
	}
	defer rows.Close()

	reports, err := scanReports(rows)
	if err != nil {
		return nil, errs.Store(err, "scan reports")
	}
	return reports, nil
}

// FindCorrelated finds candidate unfused reports near a point within a
// time window: status SUBMITTED, location present, collection time inside
// the window (inclusive both ends), great-circle distance within radiusKm.
// Results are ordered by collection time descending. No match is not an
// error.
//
// SQLite carries no geospatial index, so the query prefilters on status
// and time and the distance predicate runs here over the survivors.
func (s *Store) FindCorrelated(ctx context.Context, point geo.Point, radiusKm float64, window model.TimeWindow) ([]model.Report, error) {
	if radiusKm <= 0 {
		return nil, errs.InvalidInput("radius must be positive, got %v", radiusKm)
	}
	if window.Start.After(window.End) {
		return nil, errs.InvalidInput("time window start is after end")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE status = 'SUBMITTED'
		  AND lon IS NOT NULL AND lat IS NOT NULL
		  AND collection_time IS NOT NULL
		  AND collection_time >= ? AND collection_time <= ?
		ORDER BY collection_time DESC
	`, window.Start, window.End)
	if err != nil {
		return nil, errs.Store(err, "query correlated reports")
	}
	defer rows.Close()

	candidates, err := scanReports(rows)
	if err != nil {
		return nil, errs.Store(err, "scan correlated reports")
	}

	matched := make([]model.Report, 0, len(candidates))
	for _, r := range candidates {
		if r.Location != nil && geo.DistanceKm(point, *r.Location) <= radiusKm {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*model.Report, error) {
	var r model.Report
	var reportType, status string
	var content, reliability, credibility sql.NullString
	var lon, lat sql.NullFloat64
	var collected sql.NullTime

	err := row.Scan(&r.ID, &reportType, &r.Title, &content, &lon, &lat, &collected,
		&r.SubmittedBy, &r.SubmittedAt, &r.Classification, &reliability, &credibility, &status)
	if err != nil {
		return nil, err
	}

	r.Type = model.ReportType(reportType)
	r.Status = model.ReportStatus(status)
	if content.Valid {
		r.Content = []byte(content.String)
	}
	if lon.Valid && lat.Valid {
		r.Location = &geo.Point{Lon: lon.Float64, Lat: lat.Float64}
	}
	if collected.Valid {
		t := collected.Time
		r.CollectionTime = &t
	}
	r.Reliability = reliability.String
	r.Credibility = credibility.String
	return &r, nil
}

func scanReports(rows *sql.Rows) ([]model.Report, error) {
	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
