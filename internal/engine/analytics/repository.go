package analytics

import (
	"context"
	"time"

	"linkroute/internal/platform/database"
)

type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertClick(ctx context.Context, c *Click) error {
	query := `
		INSERT INTO clicks (
			id, link_id, alias, timestamp, ip_address, user_agent,
			country, language, os, device, browser, local_time,
			referrer, referrer_domain, destination_url, matched_rule_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		c.ID,
		c.LinkID,
		c.Alias,
		c.Timestamp,
		c.IPAddress,
		c.UserAgent,
		c.Country,
		c.Language,
		c.OS,
		c.Device,
		c.Browser,
		c.LocalTime,
		c.Referrer,
		c.ReferrerDomain,
		c.DestinationURL,
		c.MatchedRuleID,
	)
	return err
}

// ListClicks returns the raw clicks of a link, newest first.
func (r *Repository) ListClicks(ctx context.Context, linkID string, start, end int64, limit, offset int) ([]Click, error) {
	query := `
		SELECT id, link_id, alias, timestamp, ip_address, user_agent,
			country, language, os, device, browser, local_time,
			referrer, referrer_domain, destination_url, matched_rule_id
		FROM clicks
		WHERE link_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC, id
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), linkID, start, end, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clicks := []Click{}
	for rows.Next() {
		var c Click
		if err := rows.Scan(
			&c.ID, &c.LinkID, &c.Alias, &c.Timestamp, &c.IPAddress, &c.UserAgent,
			&c.Country, &c.Language, &c.OS, &c.Device, &c.Browser, &c.LocalTime,
			&c.Referrer, &c.ReferrerDomain, &c.DestinationURL, &c.MatchedRuleID,
		); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}
	return clicks, rows.Err()
}

// PurgeBefore deletes clicks older than cutoff and reports how many went.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM clicks WHERE timestamp < ?"), cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
