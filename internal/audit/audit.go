// Package audit keeps the append-only audit trail. Every mutating
// operation (report intake, fusion, adjudication) appends an entry whose
// digest covers the entry's canonical JSON plus the previous entry's
// digest, forming a hash chain: rewriting history breaks every digest
// after the edit.
//
// Canonicalization uses RFC 8785 (JCS), so digests are stable across
// field ordering and whitespace.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/abelbrown/sitrep/internal/errs"
)

// Entry is a single audit record.
type Entry struct {
	ID           string          `json:"id"`
	Actor        string          `json:"actor"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty"`
	PrevDigest   string          `json:"prev_digest"`
	Digest       string          `json:"digest"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Trail is the audit log over a shared database handle. It maintains its
// own table.
type Trail struct {
	db *sql.DB
}

// NewTrail creates the audit trail, migrating its table if needed.
func NewTrail(db *sql.DB) (*Trail, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT,
		resource_id TEXT,
		details TEXT,
		prev_digest TEXT NOT NULL,
		digest TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create audit table: %w", err)
	}
	return &Trail{db: db}, nil
}

// Append records an action. ID, timestamps, and chain digests are filled
// in here; callers provide actor, action, resource, and optional details.
func (t *Trail) Append(ctx context.Context, actor, action, resourceType, resourceID string, details any) error {
	entry := Entry{
		ID:           uuid.NewString(),
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return errs.InvalidInput("marshal audit details: %v", err)
		}
		entry.Details = raw
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Store(err, "begin audit append")
	}
	defer tx.Rollback()

	var prev sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT digest FROM audit_logs ORDER BY seq DESC LIMIT 1").Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return errs.Store(err, "read audit chain head")
	}
	entry.PrevDigest = prev.String

	digest, err := entryDigest(entry)
	if err != nil {
		return errs.Store(err, "digest audit entry")
	}
	entry.Digest = digest

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, resource_type, resource_id, details, prev_digest, digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Actor, entry.Action, entry.ResourceType, entry.ResourceID,
		detailsOrNil(entry.Details), entry.PrevDigest, entry.Digest, entry.CreatedAt)
	if err != nil {
		return errs.Store(err, "insert audit entry")
	}

	if err := tx.Commit(); err != nil {
		return errs.Store(err, "commit audit append")
	}
	return nil
}

// Entries returns the trail oldest-first.
func (t *Trail) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, actor, action, resource_type, resource_id, details, prev_digest, digest, created_at
		FROM audit_logs ORDER BY seq ASC
	`)
	if err != nil {
		return nil, errs.Store(err, "query audit entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var resourceType, resourceID, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &resourceType, &resourceID,
			&details, &e.PrevDigest, &e.Digest, &e.CreatedAt); err != nil {
			return nil, errs.Store(err, "scan audit entry")
		}
		e.ResourceType = resourceType.String
		e.ResourceID = resourceID.String
		if details.Valid {
			e.Details = []byte(details.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Store(err, "iterate audit entries")
	}
	return entries, nil
}

// Verify walks the chain oldest-first, recomputing every digest. Returns
// the id of the first broken entry, or "" when the chain is intact.
func (t *Trail) Verify(ctx context.Context) (string, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return "", err
	}
	prev := ""
	for _, e := range entries {
		if e.PrevDigest != prev {
			return e.ID, nil
		}
		digest, err := entryDigest(e)
		if err != nil {
			return "", errs.Store(err, "digest audit entry %s", e.ID)
		}
		if digest != e.Digest {
			return e.ID, nil
		}
		prev = e.Digest
	}
	return "", nil
}

// entryDigest computes the sha256 of the entry's RFC 8785 canonical JSON.
// The stored digest itself is excluded from the hashed form, and the
// timestamp is hashed as unix nanoseconds so the digest survives the
// database round trip regardless of time zone formatting.
func entryDigest(e Entry) (string, error) {
	body := struct {
		ID           string          `json:"id"`
		Actor        string          `json:"actor"`
		Action       string          `json:"action"`
		ResourceType string          `json:"resource_type"`
		ResourceID   string          `json:"resource_id"`
		Details      json.RawMessage `json:"details,omitempty"`
		PrevDigest   string          `json:"prev_digest"`
		CreatedAt    int64           `json:"created_at"`
	}{
		ID:           e.ID,
		Actor:        e.Actor,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		PrevDigest:   e.PrevDigest,
		CreatedAt:    e.CreatedAt.UnixNano(),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func detailsOrNil(d json.RawMessage) any {
	if len(d) == 0 {
		return nil
	}
	return string(d)
}
