package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"linkroute/internal/platform/database"
)

const (
	ActionCreate      = "link.create"
	ActionUpdate      = "link.update"
	ActionArchive     = "link.archive"
	ActionRestriction = "link.restriction"

	ResourceLink = "link"
)

type Entry struct {
	ID           string                 `json:"id"`
	ActorID      string                 `json:"actorId"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceId"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    int64                  `json:"createdAt"`
}

// Logger keeps an append-only trail of link changes.
type Logger struct {
	db  *database.DB
	now func() time.Time
}

func NewLogger(db *database.DB) *Logger {
	return &Logger{db: db, now: time.Now}
}

// Log writes one entry. Failures are logged and never surface to the caller.
func (l *Logger) Log(ctx context.Context, actorID, action, resourceID string, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("failed to encode audit metadata")
		return
	}

	query := `
		INSERT INTO audit_logs (id, actor_id, action, resource_type, resource_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = l.db.ExecContext(ctx, l.db.Rebind(query),
		"audit_"+uuid.New().String(), actorID, action, ResourceLink, resourceID, string(meta), l.now().UnixMilli())
	if err != nil {
		log.Error().Err(err).Str("action", action).Str("resource_id", resourceID).Msg("failed to write audit log")
	}
}

// List returns the newest entries for one resource first.
func (l *Logger) List(ctx context.Context, resourceID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, actor_id, action, resource_type, resource_id, metadata, created_at
		FROM audit_logs
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`
	rows, err := l.db.QueryContext(ctx, l.db.Rebind(query), ResourceLink, resourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var meta string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.ResourceType, &e.ResourceID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			log.Warn().Err(err).Str("id", e.ID).Msg("unreadable audit metadata")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
