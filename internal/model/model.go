// Package model defines the domain entities of the common operational
// picture: raw intelligence reports, fused events, adjudication decisions,
// provenance edges, and QA threads.
//
// These are plain data types. All state transitions flow through the
// fusion and decision engines; nothing here mutates itself.
package model

import (
	"encoding/json"
	"time"

	"github.com/abelbrown/sitrep/internal/geo"
)

// ReportType identifies the collection discipline of a raw report.
type ReportType string

const (
	ReportSOCMINT ReportType = "SOCMINT"
	ReportSIGINT  ReportType = "SIGINT"
	ReportHUMINT  ReportType = "HUMINT"
)

// ValidReportType reports whether t is a known collection discipline.
func ValidReportType(t ReportType) bool {
	switch t {
	case ReportSOCMINT, ReportSIGINT, ReportHUMINT:
		return true
	}
	return false
}

// ReportStatus is the lifecycle state of a raw report.
// Transitions only move forward: SUBMITTED → PROCESSING → FUSED (or ARCHIVED).
// A FUSED report is never re-fused.
type ReportStatus string

const (
	ReportSubmitted  ReportStatus = "SUBMITTED"
	ReportProcessing ReportStatus = "PROCESSING"
	ReportFused      ReportStatus = "FUSED"
	ReportArchived   ReportStatus = "ARCHIVED"
)

// Report is a single-source raw intelligence submission. Immutable once
// fused. Content is an opaque blob; the fusion algorithm only ever reads
// the structured metadata (location, time, reliability, credibility, type).
type Report struct {
	ID             string
	Type           ReportType
	Title          string
	Content        json.RawMessage
	Location       *geo.Point
	CollectionTime *time.Time
	SubmittedBy    string
	SubmittedAt    time.Time
	Classification string
	Reliability    string // NATO source reliability, A (best) through F
	Credibility    string // content credibility, "1" (best) through "6"
	Status         ReportStatus
}

// EventStatus is the adjudication state of a fused event.
// Starts PENDING; mutated only by the decision engine.
type EventStatus string

const (
	EventPending     EventStatus = "PENDING"
	EventApproved    EventStatus = "APPROVED"
	EventRejected    EventStatus = "REJECTED"
	EventUnderReview EventStatus = "UNDER_REVIEW"
)

// EventTypeFused is the type of every fusion-engine-produced event.
// Externally created events may carry other types.
const EventTypeFused = "FUSED_INTELLIGENCE"

// Event is a fused, adjudicable intelligence product. Confidence is set
// once at creation and never recomputed after adjudication.
type Event struct {
	ID             string
	Type           string
	Title          string
	Description    string
	StartTime      *time.Time
	EndTime        *time.Time
	Location       *geo.Point
	AreaOfInterest json.RawMessage // GeoJSON polygon, when present
	Confidence     float64         // in [0, 1]
	Sensitivity    string
	Status         EventStatus
	CreatedBy      string
	ApprovedBy     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FusionProvenance is one edge from a fused event back to a contributing
// report. Every FUSED report has exactly one edge; a fusion-produced event
// has at least two.
type FusionProvenance struct {
	ID             string
	EventID        string
	SourceReportID string
	Algorithm      string
	Weight         float64
	CreatedAt      time.Time
}

// DecisionType categorizes adjudication records.
type DecisionType string

const (
	DecisionApproveEvent DecisionType = "APPROVE_EVENT"
	DecisionRejectEvent  DecisionType = "REJECT_EVENT"
	DecisionRequestInfo  DecisionType = "REQUEST_INFO"
	DecisionOperational  DecisionType = "OPERATIONAL_DECISION"
)

// DecisionStatus is the lifecycle state of a decision record.
type DecisionStatus string

const (
	DecisionActive     DecisionStatus = "ACTIVE"
	DecisionSuperseded DecisionStatus = "SUPERSEDED"
	DecisionCancelled  DecisionStatus = "CANCELLED"
)

// Decision is an append-only adjudication record. Decisions are never
// mutated or deleted; a correction is recorded as a new decision.
type Decision struct {
	ID             string
	Type           DecisionType
	Title          string
	Description    string
	DecisionMaker  string
	RelatedEventID string
	Status         DecisionStatus
	Classification string
	CreatedAt      time.Time
	EffectiveUntil *time.Time
}

// QAThreadStatus is the state of a request-for-information thread.
type QAThreadStatus string

const (
	QAOpen     QAThreadStatus = "OPEN"
	QAAnswered QAThreadStatus = "ANSWERED"
	QAClosed   QAThreadStatus = "CLOSED"
)

// QAThread is a request-for-information thread tied to an event, created
// by the decision engine's request-info action.
type QAThread struct {
	ID         string
	EventID    string
	Questioner string
	Question   string
	Status     QAThreadStatus
	Priority   string // LOW, NORMAL, HIGH, URGENT
	CreatedAt  time.Time
}

// QAPriorityNormal is the priority assigned to engine-created threads.
const QAPriorityNormal = "NORMAL"

// Principal is the verified identity attached to each request by the
// identity collaborator. The core trusts it without re-verifying.
type Principal struct {
	ID        string
	Role      string
	Clearance string
}

// TimeWindow is an inclusive time interval.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window, inclusive both ends.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
