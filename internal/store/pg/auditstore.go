package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"rabbithaven.tw/internal/audit"
)

// AuditStore persists audit entries in the audit_log table. Rows are
// insert-only; there is no update or delete path.
type AuditStore struct {
	db *sql.DB
}

var _ audit.Store = (*AuditStore)(nil)

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_log(id, actor_id, action, resource_type, resource_id, details, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.ActorID, entry.Action, entry.ResourceType, entry.ResourceID,
		details, entry.CreatedAt)
	return err
}

func (s *AuditStore) List(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, actor_id, action, resource_type, resource_id, details, created_at
		from audit_log order by created_at desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []audit.Entry
	for rows.Next() {
		var (
			e       audit.Entry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, err
			}
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
