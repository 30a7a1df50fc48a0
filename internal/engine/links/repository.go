package links

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"linkroute/internal/engine/routing"
	"linkroute/internal/platform/database"
)

const linkColumns = `
	id, alias, kind, long_url, text_content, title, owner_id,
	redirect_type, status, paused_message, restricted, restriction_reason,
	scheduled_redirect, expiration, splash_screen, password_hash, destination_rules,
	click_count, last_click_at, created_at, updated_at, version`

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, link *Link) error {
	query := `INSERT INTO links (` + linkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	scheduled, expiration, splash, rules, err := encodeJSONColumns(link)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		link.ID,
		link.Alias,
		link.Kind,
		link.LongURL,
		link.TextContent,
		link.Title,
		link.OwnerID,
		link.RedirectType,
		link.Status,
		link.PausedMessage,
		link.Restricted,
		link.RestrictionReason,
		scheduled,
		expiration,
		splash,
		link.PasswordHash,
		rules,
		link.ClickCount,
		link.LastClickAt,
		link.CreatedAt,
		link.UpdatedAt,
		link.Version,
	)
	if database.IsUniqueViolation(err) {
		return ErrAliasTaken
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ?`
	return scanLink(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
}

func (r *Repository) GetByAlias(ctx context.Context, alias string) (*Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE alias = ?`
	return scanLink(r.db.QueryRowContext(ctx, r.db.Rebind(query), alias))
}

func (r *Repository) ExistsByAlias(ctx context.Context, alias string) (bool, error) {
	var n int
	query := "SELECT COUNT(1) FROM links WHERE alias = ?"
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), alias).Scan(&n)
	return n > 0, err
}

// Update writes every mutable column when the stored version still equals
// expectedVersion, then bumps the version.
func (r *Repository) Update(ctx context.Context, link *Link, expectedVersion int64) error {
	query := `
		UPDATE links SET
			alias = ?, kind = ?, long_url = ?, text_content = ?, title = ?,
			redirect_type = ?, status = ?, paused_message = ?,
			scheduled_redirect = ?, expiration = ?, splash_screen = ?,
			password_hash = ?, destination_rules = ?,
			updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`

	scheduled, expiration, splash, rules, err := encodeJSONColumns(link)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		link.Alias,
		link.Kind,
		link.LongURL,
		link.TextContent,
		link.Title,
		link.RedirectType,
		link.Status,
		link.PausedMessage,
		scheduled,
		expiration,
		splash,
		link.PasswordHash,
		rules,
		link.UpdatedAt,
		link.ID,
		expectedVersion,
	)
	if database.IsUniqueViolation(err) {
		return ErrAliasTaken
	}
	if err != nil {
		return err
	}
	if err := r.checkAffected(ctx, res, link.ID); err != nil {
		return err
	}
	link.Version = expectedVersion + 1
	return nil
}

func (r *Repository) SetRestriction(ctx context.Context, id string, restricted bool, reason string) error {
	query := `UPDATE links SET restricted = ?, restriction_reason = ?, updated_at = ?, version = version + 1 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), restricted, reason, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

func (r *Repository) Archive(ctx context.Context, id string) error {
	query := `UPDATE links SET status = 'archived', updated_at = ?, version = version + 1 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

func (r *Repository) IncrementClickCount(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE links SET click_count = click_count + 1, last_click_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), at.Unix(), id)
	return err
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Link, error) {
	query := `SELECT ` + linkColumns + `
		FROM links
		WHERE owner_id = ? AND status <> 'archived'
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []*Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// checkAffected maps a zero-row update to ErrNotFound or ErrVersionConflict.
func (r *Repository) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	query := "SELECT COUNT(1) FROM links WHERE id = ?"
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func encodeJSONColumns(link *Link) (scheduled, expiration, splash, rules sql.NullString, err error) {
	if scheduled, err = jsonColumn(link.ScheduledRedirect, link.ScheduledRedirect == nil); err != nil {
		return
	}
	if expiration, err = jsonColumn(link.Expiration, link.Expiration == nil); err != nil {
		return
	}
	if splash, err = jsonColumn(link.SplashScreen, link.SplashScreen == nil); err != nil {
		return
	}
	rules, err = jsonColumn(link.MultipleDestinationRules, len(link.MultipleDestinationRules) == 0)
	return
}

func jsonColumn(v interface{}, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode column: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanLink(s interface {
	Scan(dest ...interface{}) error
}) (*Link, error) {
	var link Link
	var scheduled, expiration, splash, rules sql.NullString
	var lastClickAt sql.NullInt64

	err := s.Scan(
		&link.ID,
		&link.Alias,
		&link.Kind,
		&link.LongURL,
		&link.TextContent,
		&link.Title,
		&link.OwnerID,
		&link.RedirectType,
		&link.Status,
		&link.PausedMessage,
		&link.Restricted,
		&link.RestrictionReason,
		&scheduled,
		&expiration,
		&splash,
		&link.PasswordHash,
		&rules,
		&link.ClickCount,
		&lastClickAt,
		&link.CreatedAt,
		&link.UpdatedAt,
		&link.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastClickAt.Valid {
		val := lastClickAt.Int64
		link.LastClickAt = &val
	}
	if scheduled.Valid {
		if err := json.Unmarshal([]byte(scheduled.String), &link.ScheduledRedirect); err != nil {
			return nil, fmt.Errorf("decode scheduled_redirect: %w", err)
		}
	}
	if expiration.Valid {
		if err := json.Unmarshal([]byte(expiration.String), &link.Expiration); err != nil {
			return nil, fmt.Errorf("decode expiration: %w", err)
		}
	}
	if splash.Valid {
		if err := json.Unmarshal([]byte(splash.String), &link.SplashScreen); err != nil {
			return nil, fmt.Errorf("decode splash_screen: %w", err)
		}
	}
	if rules.Valid {
		if err := json.Unmarshal([]byte(rules.String), &link.MultipleDestinationRules); err != nil {
			return nil, fmt.Errorf("decode destination_rules: %w", err)
		}
	}
	if link.MultipleDestinationRules == nil {
		link.MultipleDestinationRules = []routing.Rule{}
	}
	link.HasPassword = link.PasswordHash != ""

	return &link, nil
}
