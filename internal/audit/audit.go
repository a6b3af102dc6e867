package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"osmadmin.org/internal/auth"
	"osmadmin.org/internal/ids"
	"osmadmin.org/internal/obs"
)

// SystemActor is recorded when no authenticated identity is present, for
// example during invitation acceptance, which is intentionally public.
const SystemActor = "system"

var ErrNotFound = errors.New("audit: not found")

// Entry is one append-only row describing a committed state mutation. The
// application never updates or deletes entries.
type Entry struct {
	ID          string          `json:"id"`
	ActorID     string          `json:"actorId"`
	ActorName   string          `json:"actorName"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entityType"`
	EntityID    string          `json:"entityId"`
	EntityLabel string          `json:"entityLabel"`
	Changes     json.RawMessage `json:"changes,omitempty"`
	RequestID   string          `json:"requestId,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Filter narrows the audit list read surface.
type Filter struct {
	EntityType string
	ActorID    string
	// Action matches as a case-insensitive substring.
	Action string
}

// Store persists entries. Append is the only write the application performs.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter, offset, limit int) ([]Entry, int, error)
	Find(ctx context.Context, id string) (Entry, error)
}

// Recorder writes audit entries for committed mutations. Writes are
// best-effort relative to the response: the business mutation has already
// committed when Record runs, so a failed audit write is logged and counted
// but never surfaced as the operation's failure.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Record appends one entry for a committed mutation. The actor comes from the
// request identity; anonymous flows are attributed to SystemActor. changes is
// marshalled as the opaque payload; pass nil when there is nothing to keep.
func (r *Recorder) Record(ctx context.Context, action, entityType, entityID, entityLabel string, changes any) {
	entry := &Entry{
		ID:          ids.New(),
		ActorID:     SystemActor,
		ActorName:   SystemActor,
		Action:      strings.TrimSpace(action),
		EntityType:  entityType,
		EntityID:    entityID,
		EntityLabel: entityLabel,
		RequestID:   RequestIDFromContext(ctx),
		Timestamp:   r.now().UTC(),
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		entry.ActorID = identity.SubjectID
		entry.ActorName = identity.Email
	}
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			obs.LogEvent(map[string]any{
				"level":  "error",
				"msg":    "audit changes marshal failed",
				"action": entry.Action,
				"error":  err.Error(),
			})
		} else {
			entry.Changes = data
		}
	}

	if err := r.store.Append(ctx, entry); err != nil {
		obs.IncAuditWriteFailure()
		obs.LogEvent(map[string]any{
			"level":       "error",
			"msg":         "audit write failed",
			"action":      entry.Action,
			"entity_type": entry.EntityType,
			"entity_id":   entry.EntityID,
			"error":       err.Error(),
		})
	}
}

type requestIDContextKey struct{}

// ContextWithRequestID tags the context so audit entries can be correlated
// with request logs.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the request id, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return v
	}
	return ""
}
