package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/model"
)

const decisionColumns = `id, decision_type, title, description, decision_maker,
	related_event_id, status, classification, created_at, effective_until`

// InsertDecision appends a standalone decision record. Decisions are
// append-only; there is no update or delete path.
func (s *Store) InsertDecision(ctx context.Context, d *model.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Store(err, "begin decision insert")
	}
	defer tx.Rollback()
	if err := insertDecisionTx(ctx, tx, d); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Store(err, "commit decision insert")
	}
	return nil
}

func insertDecisionTx(ctx context.Context, tx *sql.Tx, d *model.Decision) error {
	var until any
	if d.EffectiveUntil != nil {
		until = *d.EffectiveUntil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO decisions (id, decision_type, title, description, decision_maker,
			related_event_id, status, classification, created_at, effective_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, string(d.Type), d.Title, nullableString(d.Description), d.DecisionMaker,
		nullableString(d.RelatedEventID), string(d.Status), d.Classification,
		d.CreatedAt, until)
	if err != nil {
		return errs.Store(err, "insert decision %s", d.ID)
	}
	return nil
}

// CreateRequestInfo persists the QA thread and its REQUEST_INFO decision
// as one transaction. The related event's status is deliberately left
// untouched.
func (s *Store) CreateRequestInfo(ctx context.Context, qa *model.QAThread, dec *model.Decision) error {
	// The event must exist; request-info against a ghost is NOT_FOUND.
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM events WHERE id = ?", qa.EventID).Scan(&one)
	if err == sql.ErrNoRows {
		return errs.NotFound("event %s not found", qa.EventID)
	}
	if err != nil {
		return errs.Store(err, "check event %s", qa.EventID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Store(err, "begin request-info transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO qa_threads (id, event_id, questioner_id, question, status, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, qa.ID, qa.EventID, qa.Questioner, qa.Question, string(qa.Status), qa.Priority, qa.CreatedAt)
	if err != nil {
		return errs.Store(err, "insert qa thread %s", qa.ID)
	}

	if err := insertDecisionTx(ctx, tx, dec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Store(err, "commit request-info transaction")
	}
	return nil
}

// DecisionFilters narrows ListDecisions. Absent filters are no-ops;
// there is no implicit scoping.
type DecisionFilters struct {
	DecisionMaker  string
	DecisionType   model.DecisionType
	RelatedEventID string
	Status         model.DecisionStatus
	Limit          uint64
	Offset         uint64
}

// ListDecisions is a pure paginated read ordered by creation time
// descending.
func (s *Store) ListDecisions(ctx context.Context, f DecisionFilters) ([]model.Decision, error) {
	if f.Limit == 0 {
		f.Limit = 50
	}
	builder := sq.Select(decisionColumns).From("decisions").
		OrderBy("created_at DESC").
		Limit(f.Limit).Offset(f.Offset)
	if f.DecisionMaker != "" {
		builder = builder.Where(sq.Eq{"decision_maker": f.DecisionMaker})
	}
	if f.DecisionType != "" {
		builder = builder.Where(sq.Eq{"decision_type": string(f.DecisionType)})
	}
	if f.RelatedEventID != "" {
		builder = builder.Where(sq.Eq{"related_event_id": f.RelatedEventID})
	}
	if f.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(f.Status)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errs.Store(err, "build decision query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Store(err, "query decisions")
	}
	defer rows.Close()

	var decisions []model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, errs.Store(err, "scan decision")
		}
		decisions = append(decisions, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err, "iterate decisions")
	}
	return decisions, nil
}

// GetDecision retrieves a single decision by id.
func (s *Store) GetDecision(ctx context.Context, id string) (*model.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+decisionColumns+" FROM decisions WHERE id = ?", id)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("decision %s not found", id)
	}
	if err != nil {
		return nil, errs.Store(err, "get decision %s", id)
	}
	return d, nil
}

// GetQAThread retrieves a single QA thread by id.
func (s *Store) GetQAThread(ctx context.Context, id string) (*model.QAThread, error) {
	var qa model.QAThread
	var status string
	var eventID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, questioner_id, question, status, priority, created_at
		FROM qa_threads WHERE id = ?
	`, id).Scan(&qa.ID, &eventID, &qa.Questioner, &qa.Question, &status, &qa.Priority, &qa.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("qa thread %s not found", id)
	}
	if err != nil {
		return nil, errs.Store(err, "get qa thread %s", id)
	}
	qa.EventID = eventID.String
	qa.Status = model.QAThreadStatus(status)
	return &qa, nil
}

// QAThreadsForEvent returns the QA threads attached to an event.
func (s *Store) QAThreadsForEvent(ctx context.Context, eventID string) ([]model.QAThread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, questioner_id, question, status, priority, created_at
		FROM qa_threads WHERE event_id = ? ORDER BY created_at DESC
	`, eventID)
	if err != nil {
		return nil, errs.Store(err, "query qa threads for event %s", eventID)
	}
	defer rows.Close()

	var threads []model.QAThread
	for rows.Next() {
		var qa model.QAThread
		var status string
		var evID sql.NullString
		if err := rows.Scan(&qa.ID, &evID, &qa.Questioner, &qa.Question, &status, &qa.Priority, &qa.CreatedAt); err != nil {
			return nil, errs.Store(err, "scan qa thread")
		}
		qa.EventID = evID.String
		qa.Status = model.QAThreadStatus(status)
		threads = append(threads, qa)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err, "iterate qa threads")
	}
	return threads, nil
}

func scanDecision(row rowScanner) (*model.Decision, error) {
	var d model.Decision
	var decisionType, status string
	var description, relatedEventID sql.NullString
	var until sql.NullTime

	err := row.Scan(&d.ID, &decisionType, &d.Title, &description, &d.DecisionMaker,
		&relatedEventID, &status, &d.Classification, &d.CreatedAt, &until)
	if err != nil {
		return nil, err
	}

	d.Type = model.DecisionType(decisionType)
	d.Status = model.DecisionStatus(status)
	d.Description = description.String
	d.RelatedEventID = relatedEventID.String
	if until.Valid {
		t := until.Time
		d.EffectiveUntil = &t
	}
	return &d, nil
}
