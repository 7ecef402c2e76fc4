package audit

import (
	"context"
	"time"

	"rabbithaven.tw/internal/auth"
	"rabbithaven.tw/internal/ids"
	"rabbithaven.tw/internal/obs"
)

// Action vocabulary. Every staff mutation across the console records one of
// these; the donation lifecycle tags are fixed strings relied on by the
// admin log formatter.
const (
	ActionVerifyDonation = "verify donation"
	ActionFlagDonation   = "flag donation"
	ActionRevertDonation = "revert donation"
	ActionStaffLogin     = "staff login"
	ActionCreateStaff    = "create staff user"
)

// Entry is one immutable record of a staff-performed mutation: who did what
// to which resource. Entries are appended once and never updated or deleted.
type Entry struct {
	ID           string            `json:"id"`
	ActorID      string            `json:"actor_id"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Details      map[string]string `json:"details,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TargetResource is the stable entity-kind+id string identifying the
// affected row.
func (e Entry) TargetResource() string {
	return e.ResourceType + "/" + e.ResourceID
}

// Store persists entries append-only. List returns newest first.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Recorder writes audit entries as a best-effort side channel. A failed
// append is logged and swallowed so the primary mutation it accompanies is
// never rolled back or blocked; an anonymous caller produces no entry at
// all, since actions without an identified actor must never be attributed.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Record appends one entry attributed to the authenticated actor in ctx.
func (r *Recorder) Record(ctx context.Context, action, resourceType, resourceID string, details map[string]string) {
	actorID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		obs.Warn("audit entry skipped: no authenticated actor", map[string]any{
			"action":   action,
			"resource": resourceType + "/" + resourceID,
		})
		return
	}

	entry := &Entry{
		ID:           ids.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      copyDetails(details),
		CreatedAt:    time.Now().UTC(),
	}
	if r.store != nil {
		if err := r.store.Append(ctx, entry); err != nil {
			obs.Warn("audit append failed", map[string]any{
				"action":   action,
				"resource": entry.TargetResource(),
				"error":    err.Error(),
			})
		}
	}

	fields := make(map[string]any, len(details)+1)
	for k, v := range details {
		fields[k] = v
	}
	fields["resource"] = entry.TargetResource()
	_ = LogEvent(ctx, action, fields)
}

func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return map[string]string{}
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}
