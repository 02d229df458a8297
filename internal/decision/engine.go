// Package decision implements adjudication of pending fused events:
// approve, reject, or request more information. Every adjudication
// produces an append-only decision record; approve and reject also move
// the event through its status machine, atomically with the record.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/sitrep/internal/audit"
	"github.com/abelbrown/sitrep/internal/classify"
	"github.com/abelbrown/sitrep/internal/errs"
	"github.com/abelbrown/sitrep/internal/logging"
	"github.com/abelbrown/sitrep/internal/model"
	"github.com/abelbrown/sitrep/internal/store"
)

// Engine adjudicates events. Safe for concurrent use; all state lives in
// the store.
type Engine struct {
	store *store.Store
	trail *audit.Trail
	now   func() time.Time
}

// NewEngine creates a decision engine over the given store and audit trail.
func NewEngine(st *store.Store, trail *audit.Trail) *Engine {
	return &Engine{store: st, trail: trail, now: time.Now}
}

// ApproveEvent moves a PENDING event to APPROVED, stamping the approver,
// and records the decision in the same transaction. An event in any other
// state fails with CONFLICT; the prior adjudication stands.
func (e *Engine) ApproveEvent(ctx context.Context, eventID, decisionMaker, notes string) (*model.Decision, error) {
	desc := notes
	if desc == "" {
		desc = fmt.Sprintf("Event %s approved for the common operational picture", eventID)
	}
	dec := e.newDecision(model.DecisionApproveEvent, "Event Approved", desc, decisionMaker, eventID)

	if err := e.store.TransitionEvent(ctx, eventID, model.EventPending, model.EventApproved, decisionMaker, dec); err != nil {
		return nil, err
	}

	e.auditDecision(ctx, decisionMaker, "APPROVE_EVENT", eventID, dec)
	logging.Info("event approved", "event", eventID, "by", decisionMaker)
	return dec, nil
}

// RejectEvent moves a PENDING event to REJECTED. A reason is mandatory:
// rejections without rationale are not auditable.
func (e *Engine) RejectEvent(ctx context.Context, eventID, decisionMaker, reason string) (*model.Decision, error) {
	if reason == "" {
		return nil, errs.InvalidInput("a rejection requires a reason")
	}
	dec := e.newDecision(model.DecisionRejectEvent, "Event Rejected", reason, decisionMaker, eventID)

	if err := e.store.TransitionEvent(ctx, eventID, model.EventPending, model.EventRejected, "", dec); err != nil {
		return nil, err
	}

	e.auditDecision(ctx, decisionMaker, "REJECT_EVENT", eventID, dec)
	logging.Info("event rejected", "event", eventID, "by", decisionMaker)
	return dec, nil
}

// RequestMoreInfo opens a question-and-answer thread against an event and
// records a REQUEST_INFO decision. The event's status is left alone: a
// request for information defers adjudication, it is not an adjudication.
func (e *Engine) RequestMoreInfo(ctx context.Context, eventID, decisionMaker, question string) (*model.QAThread, *model.Decision, error) {
	if question == "" {
		return nil, nil, errs.InvalidInput("a request for information requires a question")
	}

	now := e.now().UTC()
	qa := &model.QAThread{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Questioner: decisionMaker,
		Question:   question,
		Status:     model.QAOpen,
		Priority:   model.QAPriorityNormal,
		CreatedAt:  now,
	}
	dec := e.newDecision(model.DecisionRequestInfo, "Information Requested", question, decisionMaker, eventID)

	if err := e.store.CreateRequestInfo(ctx, qa, dec); err != nil {
		return nil, nil, err
	}

	e.auditDecision(ctx, decisionMaker, "REQUEST_INFO", eventID, dec)
	logging.Info("information requested", "event", eventID, "by", decisionMaker, "thread", qa.ID)
	return qa, dec, nil
}

// ListDecisions returns the decision log, filtered and paginated.
func (e *Engine) ListDecisions(ctx context.Context, f store.DecisionFilters) ([]model.Decision, error) {
	return e.store.ListDecisions(ctx, f)
}

func (e *Engine) newDecision(kind model.DecisionType, title, description, decisionMaker, eventID string) *model.Decision {
	return &model.Decision{
		ID:             uuid.NewString(),
		Type:           kind,
		Title:          title,
		Description:    description,
		DecisionMaker:  decisionMaker,
		RelatedEventID: eventID,
		Status:         model.DecisionActive,
		Classification: classify.Secret,
		CreatedAt:      e.now().UTC(),
	}
}

func (e *Engine) auditDecision(ctx context.Context, actor, action, eventID string, dec *model.Decision) {
	if e.trail == nil {
		return
	}
	err := e.trail.Append(ctx, actor, action, "EVENT", eventID, map[string]any{
		"decision_id": dec.ID,
	})
	if err != nil {
		logging.Error("audit append failed after decision", "event", eventID, "error", err)
	}
}
